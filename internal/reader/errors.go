package reader

import (
	"errors"
	"strconv"
)

// APIError is returned for any non-2xx provider response that the
// refresh-and-retry policy could not resolve.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	s := strconv.Itoa(e.Status)
	if e.Body != "" {
		s += ": " + e.Body
	}
	return s
}

// NewAPIError builds an APIError from a status and raw body.
func NewAPIError(status int, body string) *APIError {
	return &APIError{Status: status, Body: body}
}

// AsAPIError unwraps err into an APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether status should trigger a token refresh.
func IsUnauthorized(status int) bool {
	return status == 401 || status == 403
}

// NeedsReauth reports whether err means the stored credentials are no
// longer usable and the user has to log in again.
func NeedsReauth(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && IsUnauthorized(apiErr.Status)
}
