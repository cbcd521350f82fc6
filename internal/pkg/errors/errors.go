package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeBusinessRule = "BUSINESS_RULE"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// DomainError is the error type returned by the service layer. The Code
// decides the HTTP status at the edge.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func Unauthorized(message string) *DomainError {
	return &DomainError{Code: ErrCodeUnauthorized, Message: message}
}

func Forbidden(message string) *DomainError {
	return &DomainError{Code: ErrCodeForbidden, Message: message}
}

func NotFound(resource, field, value string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found with %s: %s", resource, field, value),
	}
}

func Conflict(message string) *DomainError {
	return &DomainError{Code: ErrCodeConflict, Message: message}
}

func BusinessRule(message string) *DomainError {
	return &DomainError{Code: ErrCodeBusinessRule, Message: message}
}

func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// WriteDomainError maps a service-layer error to its HTTP status.
// Conflict and business-rule violations surface as 400, matching the
// edge contract for invalid state transitions.
func WriteDomainError(w http.ResponseWriter, err error) {
	var de *DomainError
	if !errors.As(err, &de) {
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal error", nil)
		return
	}

	switch de.Code {
	case ErrCodeUnauthorized:
		WriteError(w, http.StatusUnauthorized, de.Code, de.Message, nil)
	case ErrCodeForbidden:
		WriteError(w, http.StatusForbidden, de.Code, de.Message, nil)
	case ErrCodeNotFound:
		WriteError(w, http.StatusNotFound, de.Code, de.Message, nil)
	case ErrCodeConflict, ErrCodeBusinessRule, ErrCodeInvalidInput:
		WriteError(w, http.StatusBadRequest, de.Code, de.Message, nil)
	default:
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, de.Message, nil)
	}
}
