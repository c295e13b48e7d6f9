package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/devmojahid/restu-food/pkg/errors"
)

// errorEnvelope is the {"error":{"code","message"}} body our services send.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ErrorFromResponse consumes and closes a non-2xx response and turns it into
// an error. Structured 4xx and 503 bodies become *AppError carrying the
// upstream code, so errors.Is matches the usual sentinels; anything else is
// a plain error with the status and body.
func ErrorFromResponse(resp *http.Response, service string) error {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: status %d, reading body: %w", service, resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(raw, &env) != nil || env.Error == nil {
		return fmt.Errorf("%s: status %d: %s", service, resp.StatusCode, raw)
	}

	sentinel, ok := sentinelFor(resp.StatusCode)
	if !ok {
		return fmt.Errorf("%s: status %d (%s): %s", service, resp.StatusCode, env.Error.Code, env.Error.Message)
	}

	code := env.Error.Code
	if code == "" {
		_, code = apperrors.Classify(sentinel)
	}
	return &apperrors.AppError{
		Code:    code,
		Message: service + ": " + env.Error.Message,
		Status:  resp.StatusCode,
		Err:     sentinel,
	}
}

func sentinelFor(status int) (error, bool) {
	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound, true
	case status == http.StatusConflict:
		return apperrors.ErrConflict, true
	case status == http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail, true
	case status >= 400 && status < 500:
		return apperrors.ErrInvalidInput, true
	}
	return nil, false
}
