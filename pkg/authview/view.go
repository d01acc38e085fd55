package authview

import "github.com/dmitrymomot/seopilot/pkg/authstate"

// Kind identifies which view is rendered.
type Kind int

const (
	KindLoading Kind = iota
	KindDashboard
	KindAuthForm
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindDashboard:
		return "dashboard"
	case KindAuthForm:
		return "auth_form"
	default:
		return "unknown"
	}
}

// FallbackLabel is shown when a session carries neither email nor name.
const FallbackLabel = "User"

// Dashboard is the data bound to the authenticated view.
type Dashboard struct {
	UserLabel string
}

// Form is the data bound to the sign-in/sign-up form.
type Form struct {
	Mode    authstate.Mode
	Email   string
	Error   string
	Notice  string
	Loading bool
}

// View is the outcome of Select. Only the field matching Kind is set.
type View struct {
	Kind      Kind
	Dashboard Dashboard
	Form      Form
	// Notice carries a confirmation that outlives the form, e.g. after sign-out.
	Notice string
}

// Select maps a machine snapshot to the view to render. It is pure.
//
// The loading indicator is only shown before any session was ever seen, so
// an authenticated user never sees the dashboard flash away while an action
// is in flight.
func Select(s authstate.State) View {
	switch {
	case s.Loading && !s.EverAuthenticated && s.Session == nil:
		return View{Kind: KindLoading}
	case s.Session != nil:
		return View{
			Kind:      KindDashboard,
			Dashboard: Dashboard{UserLabel: userLabel(s.Session.User)},
			Notice:    s.Notice,
		}
	default:
		return View{
			Kind: KindAuthForm,
			Form: Form{
				Mode:    s.Mode,
				Email:   s.Email,
				Error:   s.Error,
				Notice:  s.Notice,
				Loading: s.Loading,
			},
			Notice: s.Notice,
		}
	}
}

func userLabel(u authstate.User) string {
	if u.Email != "" {
		return u.Email
	}
	if name := u.DisplayName(); name != "" {
		return name
	}
	return FallbackLabel
}
