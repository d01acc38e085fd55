package token

import "errors"

var (
	ErrSecretRequired = errors.New("token: secret is required")
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid access token")
	ErrInvalidSeal    = errors.New("token: invalid sealed payload")
)
