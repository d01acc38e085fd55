package billing

import "errors"

var (
	ErrEmptyCatalog     = errors.New("billing: catalog has no plans")
	ErrInvalidPlan      = errors.New("billing: invalid plan")
	ErrInvalidCatalog   = errors.New("billing: invalid catalog document")
	ErrPlanNotFound     = errors.New("Plan not found")
	ErrCheckoutInFlight = errors.New("A checkout is already in progress")
	ErrNotAuthenticated = errors.New("You need to be signed in to manage your subscription")
	ErrNoPortalURL      = errors.New("No customer portal URL returned")
)
