package billing

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// CheckoutURL appends the signed-in user's identity to a hosted payment link
// as prefilled_email and client_reference_id, in that order. Empty values
// are skipped; without a session base is returned unchanged.
func CheckoutURL(base string, session *authstate.Session) string {
	if session == nil {
		return base
	}

	params := make([]string, 0, 2)
	if session.User.Email != "" {
		params = append(params, "prefilled_email="+url.QueryEscape(session.User.Email))
	}
	if session.User.ID != "" {
		params = append(params, "client_reference_id="+url.QueryEscape(session.User.ID))
	}
	if len(params) == 0 {
		return base
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(params, "&")
}

// Redirector resolves plan selections to checkout URLs for one view.
// Only one plan may be in flight at a time.
type Redirector struct {
	catalog  *Catalog
	log      *slog.Logger
	onSelect func(plan string)

	mu       sync.Mutex
	inFlight string
}

// RedirectorOption configures a Redirector.
type RedirectorOption func(*Redirector)

// WithRedirectLogger sets the logger. Nil keeps the discard logger.
func WithRedirectLogger(l *slog.Logger) RedirectorOption {
	return func(r *Redirector) {
		if l != nil {
			r.log = l
		}
	}
}

// WithSelectHook is called with the plan name after every successful Select.
func WithSelectHook(fn func(plan string)) RedirectorOption {
	return func(r *Redirector) { r.onSelect = fn }
}

// NewRedirector creates a Redirector over catalog.
func NewRedirector(catalog *Catalog, opts ...RedirectorOption) *Redirector {
	r := &Redirector{catalog: catalog, log: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Select marks planName as processing and returns the URL to navigate to.
// The marker stays set because the page is expected to unload; call Release
// when navigation does not happen.
func (r *Redirector) Select(ctx context.Context, planName string, session *authstate.Session) (string, error) {
	plan, ok := r.catalog.Lookup(planName)
	if !ok {
		r.log.WarnContext(ctx, "unknown plan selected", logger.Component("billing"), logger.Plan(planName))
		return "", ErrPlanNotFound
	}

	r.mu.Lock()
	if r.inFlight != "" {
		r.mu.Unlock()
		return "", ErrCheckoutInFlight
	}
	r.inFlight = plan.Name
	r.mu.Unlock()

	target := CheckoutURL(plan.PaymentLink, session)
	r.log.InfoContext(ctx, "redirecting to checkout", logger.Component("billing"), logger.Plan(plan.Name))
	if r.onSelect != nil {
		r.onSelect(plan.Name)
	}
	return target, nil
}

// Processing reports whether planName is the in-flight selection.
func (r *Redirector) Processing(planName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight != "" && r.inFlight == planName
}

// InFlight returns the in-flight plan name, if any.
func (r *Redirector) InFlight() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Release clears the in-flight marker.
func (r *Redirector) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = ""
}
