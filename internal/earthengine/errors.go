package earthengine

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("earthengine: service unavailable")

// APIError is the error envelope returned by the REST API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("earthengine: %d %s: %s", e.Code, e.Status, e.Message)
}

// IsClientError reports whether err carries a 4xx response from the engine.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500
}
