package notion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoToken is returned when a request is made without credentials.
var ErrNoToken = errors.New("notion: no integration token")

// APIError is an error object returned by the API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion: %s (%d %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("notion: %s (%d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err means the object does not exist or is not
// shared with the integration.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
