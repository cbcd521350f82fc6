package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthorized", Unauthorized("no session"), http.StatusUnauthorized, ErrCodeUnauthorized},
		{"forbidden", Forbidden("wrong role"), http.StatusForbidden, ErrCodeForbidden},
		{"not found", NotFound("Organization", "id", "org_1"), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", Conflict("slug in use"), http.StatusBadRequest, ErrCodeConflict},
		{"business rule", BusinessRule("owner cannot leave"), http.StatusBadRequest, ErrCodeBusinessRule},
		{"unknown error", fmt.Errorf("plain error"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteDomainError(rr, tt.err)

			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, body.Code)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := Conflict("duplicate")
	if !IsCode(err, ErrCodeConflict) {
		t.Error("Expected IsCode to match the error's code")
	}
	if IsCode(err, ErrCodeNotFound) {
		t.Error("Expected IsCode to reject a different code")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeConflict) {
		t.Error("Expected IsCode to reject non-domain errors")
	}
	if IsCode(nil, ErrCodeConflict) {
		t.Error("Expected IsCode to reject nil")
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("Member", "email", "a@example.com")
	expected := "Member not found with email: a@example.com"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
