// Package domainerrors defines coded business errors shared by services and
// transport. Services return these; the HTTP layer translates codes to status
// codes and a JSON envelope without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of business failure in a machine-readable way.
type Code string

const (
	CodeBadRequest        Code = "bad_request"
	CodeNotFound          Code = "not_found"
	CodeNotEligible       Code = "not_eligible"
	CodePendingExists     Code = "pending_exists"
	CodeInvalidDateRange  Code = "invalid_date_range"
	CodeRiskThreshold     Code = "risk_threshold_exceeded"
	CodeAlreadyProcessed  Code = "already_processed"
	CodeInsufficientUnits Code = "insufficient_units"
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeInternal          Code = "internal"
)

// DomainError carries a code, a human-readable message, and optional structured
// details (e.g. the conflicting pending record, or the next eligible date) so
// callers can explain a refusal to an end user.
type DomainError struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured detail fields and returns the error.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	e.Details = details
	return e
}

// Is reports whether err (or anything it wraps) is a DomainError with the code.
func Is(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidDateRange:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodePendingExists, CodeAlreadyProcessed, CodeInsufficientUnits:
		return http.StatusConflict
	case CodeNotEligible, CodeRiskThreshold:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
