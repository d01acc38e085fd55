package authstate

import "errors"

var (
	ErrAlreadyInitialized  = errors.New("auth state already initialized")
	ErrTornDown            = errors.New("auth state torn down")
	ErrCredentialsRequired = errors.New("Email and password are required.")
	ErrProviderRequired    = errors.New("OAuth provider is required.")
	ErrNoRedirectURL       = errors.New("OAuth provider returned no redirect URL.")
)
