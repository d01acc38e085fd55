package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/seopilot/pkg/authview"
	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/httpserver"
	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/ratelimiter"
)

// Confirmer completes an email confirmation link.
type Confirmer func(ctx context.Context, token string) error

// Server holds the HTTP handlers of the web application.
type Server struct {
	registry    *Registry
	catalog     *billing.Catalog
	portal      billing.Portal
	functions   http.Handler
	metrics     http.Handler
	health      []func(context.Context) error
	confirm     Confirmer
	log         *slog.Logger
	baseURL     string
	datastarURL string
	readyWait   time.Duration
	actions     authview.Actions
	throttle    func(http.Handler) http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFunctions mounts the billing functions under /functions/v1.
func WithFunctions(h http.Handler) Option {
	return func(s *Server) { s.functions = h }
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthChecks adds readiness checks to GET /healthz.
func WithHealthChecks(checks ...func(context.Context) error) Option {
	return func(s *Server) { s.health = append(s.health, checks...) }
}

// WithConfirmer serves GET /auth/confirm with fn.
func WithConfirmer(fn Confirmer) Option {
	return func(s *Server) { s.confirm = fn }
}

// WithBaseURL sets the public origin used for return URLs.
func WithBaseURL(u string) Option {
	return func(s *Server) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithDatastarScript sets the datastar client bundle URL.
func WithDatastarScript(u string) Option {
	return func(s *Server) { s.datastarURL = u }
}

// WithReadyWait bounds how long page renders wait for the initial session.
func WithReadyWait(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.readyWait = d
		}
	}
}

// WithActions overrides the dashboard form endpoints.
func WithActions(a authview.Actions) Option {
	return func(s *Server) { s.actions = a }
}

// WithAuthThrottle limits credential and OAuth submissions per client key.
func WithAuthThrottle(b *ratelimiter.Bucket, key ratelimiter.KeyFunc) Option {
	return func(s *Server) {
		s.throttle = ratelimiter.Middleware(b, key,
			ratelimiter.WithLimitedHandler(s.tooManyAttempts),
			ratelimiter.WithErrorHook(func(r *http.Request, err error) {
				s.log.WarnContext(r.Context(), "auth throttle unavailable",
					logger.Component("web"), logger.Error(err))
			}),
		)
	}
}

// New creates a Server. portal may be nil, in which case the manage
// subscription action always fails.
func New(registry *Registry, catalog *billing.Catalog, portal billing.Portal, opts ...Option) *Server {
	s := &Server{
		registry:  registry,
		catalog:   catalog,
		portal:    portal,
		log:       logger.Discard(),
		baseURL:   "http://localhost:8080",
		readyWait: 750 * time.Millisecond,
		actions:   authview.DefaultActions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a Server from cfg. opts are applied after the config values.
func NewFromConfig(cfg Config, registry *Registry, catalog *billing.Catalog, portal billing.Portal, opts ...Option) *Server {
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithDatastarScript(cfg.DatastarURL),
		WithReadyWait(cfg.ReadyWait),
	}
	return New(registry, catalog, portal, append(base, opts...)...)
}

// Routes returns the application router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	r.Route("/dashboard", func(d chi.Router) {
		d.Get("/", s.dashboard)
		d.Group(func(g chi.Router) {
			if s.throttle != nil {
				g.Use(s.throttle)
			}
			g.Post("/credentials", s.submitCredentials)
			g.Post("/oauth/{provider}", s.startOAuth)
		})
		d.Post("/mode", s.setMode)
		d.Post("/signout", s.signOut)
		d.Get("/stream", s.stream)
	})
	r.Get("/auth/callback", s.oauthCallback)
	if s.confirm != nil {
		r.Get("/auth/confirm", s.confirmEmail)
	}
	r.Get("/pricing", s.pricing)
	r.Post("/pricing/select/{plan}", s.selectPlan)
	r.Post("/pricing/manage", s.manageSubscription)

	if s.functions != nil {
		r.Mount("/functions/v1", s.functions)
	}
	r.Get("/healthz", httpserver.HealthCheckHandler(s.log, s.health...))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// view resolves the request's view and tags the request context with its id.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (*View, *http.Request, bool) {
	v, err := s.registry.Resolve(w, r)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to resolve view",
			logger.Component("web"), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, r, false
	}
	return v, r.WithContext(withViewID(r.Context(), v.ID)), true
}

// awaitReady lets the first render show the resolved session instead of the
// loading indicator when the provider answers quickly.
func (s *Server) awaitReady(r *http.Request, v *View) {
	if s.readyWait <= 0 {
		return
	}
	t := time.NewTimer(s.readyWait)
	defer t.Stop()
	select {
	case <-v.Machine.Ready():
	case <-t.C:
	case <-r.Context().Done():
	}
}

func (s *Server) tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusTooManyRequests, "Dashboard", "", message(NoticeTooManyAttempts))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, title, stream string, body templ.Component) {
	if err := render(w, r, status, Document(title, s.datastarURL, stream, body)); err != nil {
		s.log.ErrorContext(r.Context(), "failed to render page",
			logger.Component("web"), logger.Error(err))
	}
}
