package supabase

import (
	"errors"
	"fmt"
)

var (
	ErrURLRequired     = errors.New("supabase: project url is required")
	ErrAnonKeyRequired = errors.New("supabase: anon key is required")
	ErrNoCodeVerifier  = errors.New("supabase: no pending oauth flow for this view")
	ErrCodeRequired    = errors.New("supabase: authorization code is required")
	ErrNotSignedIn     = errors.New("supabase: not signed in")
	ErrClientClosed    = errors.New("supabase: client closed")
)

// APIError is a non-2xx response from the project. Error returns the
// provider message so it can be shown to the user as is.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error_code,omitempty"`
	Message string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("supabase: request failed with status %d", e.Status)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
