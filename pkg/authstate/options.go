package authstate

import (
	"log/slog"
	"time"
)

// ActionHook observes every settled action, e.g. for metrics.
type ActionHook func(action string, err error, elapsed time.Duration)

// Action names reported to an ActionHook.
const (
	ActionSignIn  = "sign_in"
	ActionSignUp  = "sign_up"
	ActionOAuth   = "oauth"
	ActionSignOut = "sign_out"
	ActionFetch   = "fetch_session"
)

type Option func(*Machine)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRedirectTarget sets the fixed post-OAuth redirect URL.
func WithRedirectTarget(url string) Option {
	return func(m *Machine) { m.redirectTo = url }
}

// WithMode sets the initial form mode.
func WithMode(mode Mode) Option {
	return func(m *Machine) { m.state.Mode = mode }
}

// WithActionHook registers a hook called after every provider call settles.
func WithActionHook(h ActionHook) Option {
	return func(m *Machine) {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
	}
}
