package authview

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
)

// ContainerID is the element id every Page renders into. SSE patches target it.
const ContainerID = "auth-view"

// Actions holds the endpoints the rendered forms post to.
type Actions struct {
	Submit     string
	OAuth      string // provider id is appended as a path segment
	ToggleMode string
	SignOut    string
	Stream     string // SSE endpoint the enclosing document subscribes to
	Providers  []string
}

// DefaultActions returns the dashboard routes served by the web package.
func DefaultActions() Actions {
	return Actions{
		Submit:     "/dashboard/credentials",
		OAuth:      "/dashboard/oauth",
		ToggleMode: "/dashboard/mode",
		SignOut:    "/dashboard/signout",
		Stream:     "/dashboard/stream",
		Providers:  []string{"google"},
	}
}

// Page renders the selected view inside the patchable container.
func Page(v View, a Actions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<section id="`, ContainerID, `" data-view="`, v.Kind.String(), `">`)
		if hw.err != nil {
			return hw.err
		}

		var inner templ.Component
		switch v.Kind {
		case KindLoading:
			inner = LoadingIndicator()
		case KindDashboard:
			inner = DashboardView(v.Dashboard, v.Notice, a)
		default:
			inner = AuthForm(v.Form, a)
		}
		if err := inner.Render(ctx, w); err != nil {
			return err
		}

		hw.raw(`</section>`)
		return hw.err
	})
}

// LoadingIndicator renders the initial session loading placeholder.
func LoadingIndicator() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="auth-loading" role="status"><span class="spinner" aria-hidden="true"></span><p>Loading authentication state...</p></div>`)
		return err
	})
}

// DashboardView renders the authenticated dashboard with a sign-out form.
func DashboardView(d Dashboard, notice string, a Actions) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<div class="dashboard">`)
		notify(hw, notice)
		hw.raw(`<h1>Welcome to your dashboard</h1>`)
		hw.raw(`<p class="dashboard-user">Signed in as <strong>`)
		hw.text(d.UserLabel)
		hw.raw(`</strong></p>`)
		hw.raw(`<form method="post" action="`)
		hw.text(a.SignOut)
		hw.raw(`"><button type="submit">Sign Out</button></form>`)
		hw.raw(`<a class="dashboard-pricing" href="/pricing">View plans</a>`)
		hw.raw(`</div>`)
		return hw.err
	})
}

// AuthForm renders the credentials form, OAuth buttons and mode toggle.
func AuthForm(f Form, a Actions) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		signUp := f.Mode == authstate.ModeSignUp
		disabled := ""
		if f.Loading {
			disabled = " disabled"
		}

		hw := &htmlWriter{w: w}
		hw.raw(`<div class="auth-card">`)
		if signUp {
			hw.raw(`<h1>Create Account</h1><p>Join our community.</p>`)
		} else {
			hw.raw(`<h1>Sign In</h1><p>Enter your credentials or use social login.</p>`)
		}
		notify(hw, f.Notice)

		hw.raw(`<form method="post" action="`)
		hw.text(a.Submit)
		hw.raw(`" class="auth-form">`)
		hw.raw(`<input type="hidden" name="mode" value="`)
		hw.text(string(f.Mode))
		hw.raw(`">`)
		hw.raw(`<label for="email">Email</label>`)
		hw.raw(`<input id="email" name="email" type="email" placeholder="your.email@example.com" required value="`)
		hw.text(f.Email)
		hw.raw(`"`, disabled, `>`)
		hw.raw(`<label for="password">Password</label>`)
		hw.raw(`<input id="password" name="password" type="password" required`, disabled, `>`)
		if signUp {
			hw.raw(`<p class="hint">Password must be at least 6 characters.</p>`)
		}
		if f.Error != "" {
			hw.raw(`<p class="error" role="alert">`)
			hw.text(f.Error)
			hw.raw(`</p>`)
		}
		hw.raw(`<button type="submit"`, disabled, `>`)
		switch {
		case f.Loading && signUp:
			hw.raw(`Signing up...`)
		case f.Loading:
			hw.raw(`Signing in...`)
		case signUp:
			hw.raw(`Sign Up`)
		default:
			hw.raw(`Sign In`)
		}
		hw.raw(`</button></form>`)

		if len(a.Providers) > 0 {
			hw.raw(`<p class="divider">Or continue with</p>`)
		}
		for _, p := range a.Providers {
			hw.raw(`<form method="post" action="`)
			hw.text(strings.TrimSuffix(a.OAuth, "/") + "/" + p)
			hw.raw(`"><button type="submit" class="oauth"`, disabled, `>Sign In with `)
			hw.text(providerLabel(p))
			hw.raw(`</button></form>`)
		}

		hw.raw(`<form method="post" action="`)
		hw.text(a.ToggleMode)
		hw.raw(`" class="mode-toggle">`)
		if signUp {
			hw.raw(`Already have an account? <button type="submit" name="mode" value="signin">Sign In</button>`)
		} else {
			hw.raw(`Don't have an account? <button type="submit" name="mode" value="signup">Sign Up</button>`)
		}
		hw.raw(`</form></div>`)
		return hw.err
	})
}

func notify(hw *htmlWriter, notice string) {
	if notice == "" {
		return
	}
	hw.raw(`<p class="notice" role="status">`)
	hw.text(notice)
	hw.raw(`</p>`)
}

func providerLabel(p string) string {
	if p == "" {
		return p
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

// htmlWriter accumulates the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}
