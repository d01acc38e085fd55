package authstate

import "strings"

// Phase is the coarse lifecycle position of a Machine.
type Phase string

const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseLoading         Phase = "loading"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticated   Phase = "authenticated"
)

// Mode selects what a credentials submit does.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// ParseMode maps form values to a Mode, defaulting to ModeSignIn.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "signup", "sign_up", "sign-up":
		return ModeSignUp
	default:
		return ModeSignIn
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeSignUp {
		return ModeSignIn
	}
	return ModeSignUp
}

// User-visible notices.
const (
	NoticeConfirmEmail = "Check your email for the confirmation link!"
	NoticeSignedOut    = "Signed out successfully!"
)

// State is an immutable snapshot of a Machine.
type State struct {
	Phase   Phase
	Session *Session
	// Loading is true while the initial fetch is outstanding or any action
	// is between start and resolution.
	Loading bool
	Error   string
	Notice  string
	Mode    Mode
	// Email is the last submitted email field value. Passwords are never kept.
	Email string
	// EverAuthenticated records whether a session was observed at least once.
	EverAuthenticated bool
	// Version increases with every applied mutation.
	Version uint64
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool { return s.Session != nil }
