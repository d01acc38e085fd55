package edge

import "errors"

var (
	ErrMethodNotAllowed = errors.New("Method Not Allowed")
	ErrInvalidItems     = errors.New("Missing or invalid items in request body.")
	ErrInvalidBody      = errors.New("Invalid request body.")
	ErrUnauthorized     = errors.New("Unauthorized")
	ErrMissingEmail     = errors.New("Authenticated user has no email")
	ErrCustomerNotFound = errors.New("No Stripe customer found for this user")
	ErrMissingReturnURL = errors.New("returnUrl is required")
	ErrStripeKeyMissing = errors.New("edge: stripe secret key is required")
)
