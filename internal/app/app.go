package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/seopilot/internal/metrics"
	"github.com/dmitrymomot/seopilot/internal/web"
	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/clientip"
	"github.com/dmitrymomot/seopilot/pkg/cookie"
	"github.com/dmitrymomot/seopilot/pkg/edge"
	"github.com/dmitrymomot/seopilot/pkg/environment"
	"github.com/dmitrymomot/seopilot/pkg/httpserver"
	"github.com/dmitrymomot/seopilot/pkg/localauth"
	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/ratelimiter"
	"github.com/dmitrymomot/seopilot/pkg/supabase"
	"github.com/dmitrymomot/seopilot/pkg/token"
)

// App is the assembled service.
type App struct {
	Handler  http.Handler
	Registry *web.Registry
	Limits   *ratelimiter.MemoryStore

	cfg Config
	log *slog.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	supabase *supabase.Config
	stripe   []edge.StripeOption
}

// WithSupabase provides the project settings for the supabase provider.
func WithSupabase(cfg supabase.Config) Option {
	return func(o *options) { o.supabase = &cfg }
}

// WithStripeOptions are passed to the Stripe gateway, e.g. test backends.
func WithStripeOptions(opts ...edge.StripeOption) Option {
	return func(o *options) { o.stripe = append(o.stripe, opts...) }
}

// provider is the auth backend of every view.
type provider struct {
	factory web.StoreFactory
	probe   billing.Probe
	portal  billing.Portal
	confirm web.Confirmer
}

// New wires the service from cfg.
func New(cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	gateway, err := newGateway(cfg.Edge, catalog, o.stripe, log)
	if err != nil {
		return nil, err
	}
	verifier, err := token.NewVerifier(cfg.Edge.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("functions verifier: %w", err)
	}
	functions := edge.NewHandler(gateway, verifier,
		edge.WithLogger(log),
		edge.WithDefaultCurrency(cfg.Edge.DefaultCurrency),
		edge.WithResponseHook(collector.FunctionResponse),
	)

	ips := clientip.New(cfg.ClientIPHeaders...)
	limits := ratelimiter.NewMemoryStore()
	authLimiter, err := ratelimiter.NewBucket(limits, cfg.AuthRate)
	if err != nil {
		return nil, fmt.Errorf("auth rate limit: %w", err)
	}
	functionsLimiter, err := ratelimiter.NewBucket(limits, cfg.FunctionsRate)
	if err != nil {
		return nil, fmt.Errorf("functions rate limit: %w", err)
	}
	authKey := func(r *http.Request) string { return "auth:" + ips.KeyFunc(r) }
	functionsKey := func(r *http.Request) string { return "functions:" + ips.KeyFunc(r) }

	var p provider
	switch strings.ToLower(strings.TrimSpace(cfg.AuthProvider)) {
	case ProviderLocal, "":
		p, err = localProvider(cfg, gateway, log)
	case ProviderSupabase:
		p, err = supabaseProvider(o.supabase, log)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.AuthProvider)
	}
	if err != nil {
		return nil, err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, fmt.Errorf("view cookies: %w", err)
	}
	baseURL := strings.TrimRight(cfg.Web.BaseURL, "/")
	registry, err := web.NewRegistry(p.factory, p.probe, catalog, cookies,
		web.WithRegistryLogger(log),
		web.WithViewTTL(cfg.Web.ViewTTL),
		web.WithCookieName(cfg.Web.ViewCookie),
		web.WithViewCountHook(collector.SetActiveViews),
		web.WithMachineOptions(
			authstate.WithRedirectTarget(baseURL+"/auth/callback"),
			authstate.WithActionHook(collector.AuthAction),
		),
		web.WithTrackerOptions(billing.WithProbeHook(collector.ProbeResult)),
		web.WithRedirectorOptions(billing.WithSelectHook(collector.CheckoutRedirect)),
	)
	if err != nil {
		return nil, fmt.Errorf("view registry: %w", err)
	}

	serverOpts := []web.Option{
		web.WithLogger(log),
		web.WithFunctions(ratelimiter.Middleware(functionsLimiter, functionsKey)(functions.Routes())),
		web.WithMetrics(metrics.Handler(reg)),
		web.WithAuthThrottle(authLimiter, authKey),
	}
	if p.confirm != nil {
		serverOpts = append(serverOpts, web.WithConfirmer(p.confirm))
	}
	server := web.NewFromConfig(cfg.Web, registry, catalog, p.portal, serverOpts...)

	env := environment.Parse(cfg.Env)
	return &App{
		Handler:  ips.Middleware(environment.Middleware(env)(server.Routes())),
		Registry: registry,
		Limits:   limits,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run serves HTTP until ctx is done, then tears every view down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Registry.Run(ctx, a.cfg.Web.SweepInterval)
	}()
	go func() {
		defer wg.Done()
		a.Limits.Run(ctx, a.cfg.Web.SweepInterval)
	}()

	srv := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))
	err := srv.Run(ctx, a.Handler)
	cancel()
	wg.Wait()
	return err
}

func loadCatalog(path string) (*billing.Catalog, error) {
	if path == "" {
		return billing.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan catalog: %w", err)
	}
	defer f.Close()
	return billing.LoadCatalog(f)
}

// newGateway uses Stripe when a secret key is configured.
func newGateway(cfg edge.Config, catalog *billing.Catalog, opts []edge.StripeOption, log *slog.Logger) (edge.Gateway, error) {
	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set, billing functions run offline", logger.Component("app"))
		return edge.OfflineGateway{}, nil
	}
	g, err := edge.NewStripeGateway(cfg.StripeSecretKey, catalog, opts...)
	if err != nil {
		return nil, fmt.Errorf("stripe gateway: %w", err)
	}
	return g, nil
}

// localProvider keeps accounts in memory and answers billing calls in
// process through the functions gateway.
func localProvider(cfg Config, gateway edge.Gateway, log *slog.Logger) (provider, error) {
	if cfg.Local.RequireConfirmation && cfg.ConfirmSecret == "" {
		return provider{}, ErrConfirmSecret
	}
	signer, err := token.NewSigner(cfg.Edge.JWTSecret, token.WithIssuer(strings.TrimRight(cfg.Web.BaseURL, "/")+"/auth/v1"))
	if err != nil {
		return provider{}, fmt.Errorf("local token signer: %w", err)
	}

	confirmBase := strings.TrimRight(cfg.Web.BaseURL, "/") + "/auth/confirm?token="
	opts := []localauth.DirectoryOption{localauth.WithLogger(log)}
	if cfg.Local.RequireConfirmation {
		opts = append(opts, localauth.WithConfirmation(cfg.ConfirmSecret, cfg.Local.ConfirmLinkTTL,
			func(ctx context.Context, email, confirmToken string) {
				log.InfoContext(ctx, "confirmation link issued",
					logger.Component("localauth"),
					slog.String("email", email),
					slog.String("link", confirmBase+confirmToken))
			}))
	}
	dir, err := localauth.NewFromConfig(cfg.Local, signer, cfg.ConfirmSecret, opts...)
	if err != nil {
		return provider{}, fmt.Errorf("local directory: %w", err)
	}

	direct := edge.Direct{Gateway: gateway}
	var probe billing.Probe = localauth.Probe{}
	if _, offline := gateway.(edge.OfflineGateway); !offline {
		probe = direct
	}

	return provider{
		factory: func() web.Store { return dir.NewClient() },
		probe:   probe,
		portal:  direct,
		confirm: func(ctx context.Context, raw string) error {
			_, err := dir.Confirm(ctx, raw)
			return err
		},
	}, nil
}

// supabaseProvider gives every view its own GoTrue client; billing goes
// through the deployed functions.
func supabaseProvider(cfg *supabase.Config, log *slog.Logger) (provider, error) {
	if cfg == nil {
		return provider{}, ErrSupabaseConfig
	}
	project, err := supabase.NewFromConfig(*cfg, supabase.WithLogger(log))
	if err != nil {
		return provider{}, fmt.Errorf("supabase project: %w", err)
	}
	return provider{
		factory: func() web.Store { return project.NewClient() },
		probe:   project,
		portal:  project,
	}, nil
}
