package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusAndCode(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		code   string
	}{
		{Validation("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{NotFound("missing"), http.StatusNotFound, "NOT_FOUND"},
		{Conflict("dup"), http.StatusConflict, "CONFLICT"},
		{Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{Unauthorized("who"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{Internal("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{New(KindUnknown, "?"), http.StatusInternalServerError, "UNKNOWN"},
	}

	for _, tc := range tests {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.err.Message, got, tc.status)
		}
		if got := tc.err.Code(); got != tc.code {
			t.Errorf("%s: code = %q, want %q", tc.err.Message, got, tc.code)
		}
	}
}

func TestGetKindFindsWrappedError(t *testing.T) {
	base := Conflict("lead already assigned").WithOp("assignments.assign")
	wrapped := fmt.Errorf("outer: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to be a conflict, got %v", GetKind(wrapped))
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("plain errors must report KindUnknown")
	}
}

func TestErrorMessageIncludesOpAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internalf("leads.repository.create", cause, "create lead failed")

	want := "leads.repository.create: create lead failed: connection reset"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}
