// Package errors is the error vocabulary shared by every layer of the cart
// service. A failure that reaches the HTTP surface is either an *AppError or
// wraps one of the sentinels below; anything else is reported as internal.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrInvalidOffer   = errors.New("invalid offer code")
	ErrServiceUnavail = errors.New("service unavailable")
)

// kinds lists each sentinel with the status and code it is presented with.
var kinds = []struct {
	sentinel error
	status   int
	code     string
}{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrInvalidOffer, http.StatusUnprocessableEntity, "INVALID_OFFER_CODE"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
}

// AppError is a failure with a client-facing code and message. Err holds the
// sentinel it belongs to, so errors.Is works on wrapped AppErrors.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(sentinel error, message string) *AppError {
	status, code := Classify(sentinel)
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound reports a missing resource, e.g. NotFound("cart item", "42").
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s %q not found", resource, id))
}

func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// ConflictWithCode is a 409 with a code the client can branch on.
func ConflictWithCode(code, message string) *AppError {
	e := newError(ErrConflict, message)
	e.Code = code
	return e
}

// InvalidOffer reports a promotional code that cannot be applied.
func InvalidOffer(message string) *AppError {
	return newError(ErrInvalidOffer, message)
}

func ServiceUnavailable(message string) *AppError {
	return newError(ErrServiceUnavail, message)
}

// Classify returns the HTTP status and error code for err. An *AppError in
// the chain wins over sentinels; unknown errors are 500 INTERNAL_ERROR.
func Classify(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}
