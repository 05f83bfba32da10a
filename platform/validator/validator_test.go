package validator

import "testing"

type sample struct {
	Conclusion string  `json:"conclusion" validate:"required,notblank"`
	Notes      *string `json:"notes" validate:"omitempty,notblank"`
	Priority   string  `json:"priority" validate:"omitempty,oneof=high medium low"`
}

func TestNotBlank(t *testing.T) {
	blank := "   "
	tests := []struct {
		name  string
		input sample
		field string
	}{
		{"valid", sample{Conclusion: "called"}, ""},
		{"whitespace conclusion", sample{Conclusion: "  "}, "conclusion"},
		{"blank notes pointer", sample{Conclusion: "ok", Notes: &blank}, "notes"},
		{"bad priority", sample{Conclusion: "ok", Priority: "urgent"}, "priority"},
	}

	val := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := val.Struct(tc.input)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			fields := FieldErrors(err)
			if _, ok := fields[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, fields)
			}
		})
	}
}
