// Package httputil writes the JSON envelope every cart endpoint answers with:
// {"data": ...} on success, {"error": {...}} on failure, both when a request
// is refused but the client still needs the current state.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/devmojahid/restu-food/pkg/errors"
	"github.com/devmojahid/restu-food/pkg/logger"
	"github.com/devmojahid/restu-food/pkg/validator"
)

// Response is the envelope of every API answer.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse describes a failed request. Fields is set for validation
// failures and maps JSON field names to the violated rule.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status. Encoding errors are dropped
// since the header is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status and code via apperrors.Classify. Client
// errors carry their own message; internal errors are logged with the
// request-scoped logger (or fallback) and answered with a generic one.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	status, code := apperrors.Classify(err)

	var message string
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case status == http.StatusInternalServerError:
		message = "an internal error occurred"
		l := logger.FromContext(ctx)
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(ctx, "unhandled error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	default:
		message = err.Error()
	}

	WriteJSON(w, status, Response{Error: &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: logger.CorrelationIDFromContext(ctx),
	}})
}

// WriteValidationError answers 400. A *validator.ValidationError becomes
// VALIDATION_ERROR with per-field details; anything else (bad JSON, body too
// large) becomes INVALID_INPUT.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		}})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
		Code:    "INVALID_INPUT",
		Message: err.Error(),
	}})
}
