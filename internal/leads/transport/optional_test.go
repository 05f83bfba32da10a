package transport

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestUpdateLeadRequestCategory(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name      string
		body      string
		wantSet   bool
		wantClear bool
		wantValue *uuid.UUID
	}{
		{"absent keeps", `{"name":"Ada"}`, false, false, nil},
		{"null clears", `{"category":null}`, true, true, nil},
		{"empty string clears", `{"category":""}`, true, true, nil},
		{"id replaces", `{"category":"` + id.String() + `"}`, true, false, &id},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req UpdateLeadRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.Category.Set != tc.wantSet || req.Category.Clears() != tc.wantClear {
				t.Fatalf("category = %+v", req.Category)
			}
			if tc.wantValue != nil && (req.Category.Value == nil || *req.Category.Value != *tc.wantValue) {
				t.Fatalf("value = %v, want %v", req.Category.Value, *tc.wantValue)
			}
		})
	}
}

func TestUpdateLeadRequestCategoryRejectsMalformedID(t *testing.T) {
	var req UpdateLeadRequest
	if err := json.Unmarshal([]byte(`{"category":"not-a-uuid"}`), &req); err == nil {
		t.Fatal("expected an error for a malformed category id")
	}
}

func TestUpdateLeadRequestReservedFields(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{`{"name":"Ada"}`, false},
		{`{"assignedTo":null}`, true},
		{`{"isDeleted":false,"notes":"n"}`, true},
		{`{"assignedTo":"` + uuid.NewString() + `"}`, true},
	}
	for _, tc := range cases {
		var req UpdateLeadRequest
		if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.body, err)
		}
		if got := req.WritesReservedFields(); got != tc.want {
			t.Errorf("%s: WritesReservedFields = %v, want %v", tc.body, got, tc.want)
		}
	}
}
