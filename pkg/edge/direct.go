package edge

import (
	"context"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// Direct answers billing.Probe and billing.Portal from a Gateway in-process,
// skipping the HTTP functions. The local auth provider uses it.
type Direct struct {
	Gateway Gateway
}

var (
	_ billing.Probe  = Direct{}
	_ billing.Portal = Direct{}
)

func (d Direct) CheckSubscription(ctx context.Context, session *authstate.Session) (billing.Status, error) {
	if session == nil {
		return billing.Status{}, billing.ErrNotAuthenticated
	}
	if session.User.Email == "" {
		return billing.Status{}, ErrMissingEmail
	}
	return d.Gateway.SubscriptionStatus(ctx, session.User.Email)
}

func (d Direct) CustomerPortal(ctx context.Context, session *authstate.Session, returnURL string) (string, error) {
	if session == nil {
		return "", billing.ErrNotAuthenticated
	}
	if session.User.Email == "" {
		return "", ErrMissingEmail
	}
	if returnURL == "" {
		return "", ErrMissingReturnURL
	}
	return d.Gateway.PortalURL(ctx, session.User.Email, returnURL)
}
