// Package httputil holds the JSON encode/decode helpers shared by every
// handler, so transport concerns stay out of the services.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "hemobank/pkg/domain-errors"
)

// Validatable is implemented by request types that validate themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// errorEnvelope is the uniform error body. Details carry machine-readable
// context such as the conflicting record or the next eligible date.
type errorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps a domain error to its HTTP status and envelope. Anything
// that is not a DomainError is an internal failure and leaks no message.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.DomainError
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, errorEnvelope{Error: string(dErrors.CodeInternal)})
		return
	}
	status := dErrors.ToHTTPStatus(de.Code)
	env := errorEnvelope{Error: string(de.Code), Details: de.Details}
	if status < http.StatusInternalServerError {
		env.Message = de.Message
	}
	WriteJSON(w, status, env)
}

// DecodeAndPrepare decodes the request body into T and validates it. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "request decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
