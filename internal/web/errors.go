package web

import "errors"

var (
	ErrNoStoreFactory = errors.New("web: store factory is required")
	ErrNoCatalog      = errors.New("web: plan catalog is required")
	ErrViewNotFound   = errors.New("web: view not found")
	ErrRegistryClosed = errors.New("web: view registry closed")
	ErrCodeExchange   = errors.New("web: store cannot complete oauth redirects")
)

// Messages shown on the pricing page after a failed action.
const (
	NoticePortalFailed   = "Could not open the customer portal. Please try again."
	NoticeCheckoutFailed = "Could not start checkout. Please try again."
	NoticeSignInRequired = "Sign in to manage your subscription."

	NoticeTooManyAttempts = "Too many sign-in attempts. Please wait a moment and try again."
)
