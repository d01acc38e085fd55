package authstate

import (
	"context"
	"maps"
	"time"
)

// User is the identity carried by a Session.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// DisplayName returns the full_name metadata value, falling back to name.
func (u User) DisplayName() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := u.Metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Session is the provider-issued authenticated identity.
// The machine only ever holds copies; callers must treat it as read-only.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Clone returns a deep copy of s. Nil stays nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.User.Metadata = maps.Clone(s.User.Metadata)
	return &c
}

// Store is the external authentication provider.
//
// Provider failures are returned as errors whose message is fit for display.
type Store interface {
	// CurrentSession returns the active session or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	SignUp(ctx context.Context, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) error
	// SignInWithOAuth returns the provider URL the browser must navigate to.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	SignOut(ctx context.Context) error
	// OnSessionChange registers a persistent listener. Implementations may
	// invoke fn synchronously with the current value during registration.
	// The returned func unregisters the listener and is idempotent.
	OnSessionChange(fn func(*Session)) (unsubscribe func())
}
