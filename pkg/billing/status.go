package billing

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
)

// Status is the subscription probe response.
type Status struct {
	Subscribed bool   `json:"subscribed"`
	Tier       string `json:"subscription_tier,omitempty"`
}

// Probe reports the subscription status of a signed-in user. It has no side effects.
type Probe interface {
	CheckSubscription(ctx context.Context, session *authstate.Session) (Status, error)
}

// Portal issues customer portal links.
type Portal interface {
	CustomerPortal(ctx context.Context, session *authstate.Session, returnURL string) (string, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, session *authstate.Session) (Status, error)

func (f ProbeFunc) CheckSubscription(ctx context.Context, session *authstate.Session) (Status, error) {
	return f(ctx, session)
}

// PortalFunc adapts a function to Portal.
type PortalFunc func(ctx context.Context, session *authstate.Session, returnURL string) (string, error)

func (f PortalFunc) CustomerPortal(ctx context.Context, session *authstate.Session, returnURL string) (string, error) {
	return f(ctx, session, returnURL)
}

// OpenPortal resolves the customer portal URL for session.
func OpenPortal(ctx context.Context, portal Portal, session *authstate.Session, returnURL string) (string, error) {
	if session == nil {
		return "", ErrNotAuthenticated
	}
	target, err := portal.CustomerPortal(ctx, session, returnURL)
	if err != nil {
		return "", fmt.Errorf("open customer portal: %w", err)
	}
	if target == "" {
		return "", ErrNoPortalURL
	}
	return target, nil
}
