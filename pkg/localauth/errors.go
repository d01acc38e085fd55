package localauth

import "errors"

// Messages mirror the hosted provider so the form reads the same in both modes.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrUserExists         = errors.New("User already registered")
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters.")
	ErrOAuthUnavailable   = errors.New("OAuth sign-in is not available with the local provider")
	ErrInvalidConfirmLink = errors.New("Email link is invalid or has expired")
	ErrSignerRequired     = errors.New("localauth: token signer is required")
	ErrClientClosed       = errors.New("localauth: client closed")
)
