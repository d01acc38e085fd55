package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/cookie"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// Store is an authstate.Store owned by exactly one view.
type Store interface {
	authstate.Store
	Close() error
}

// CodeExchanger completes an OAuth redirect for the view that started it.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) error
}

// StoreFactory creates the Store of a new view.
type StoreFactory func() Store

// View is the server side of one browser tab.
type View struct {
	ID         string
	Machine    *authstate.Machine
	Tracker    *billing.Tracker
	Redirector *billing.Redirector

	store  Store
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
	streams  int
	flash    string
}

// Store returns the provider client of the view.
func (v *View) Store() Store {
	return v.store
}

// Flash stores a one-time message for the next pricing page render.
func (v *View) Flash(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.flash = msg
}

// TakeFlash returns and clears the pending message.
func (v *View) TakeFlash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := v.flash
	v.flash = ""
	return msg
}

// attach marks an open stream; the view is not evicted while one is open.
func (v *View) attach(now time.Time) func(time.Time) {
	v.mu.Lock()
	v.streams++
	v.lastSeen = now
	v.mu.Unlock()
	return func(at time.Time) {
		v.mu.Lock()
		v.streams--
		v.lastSeen = at
		v.mu.Unlock()
	}
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *View) idle(now time.Time, ttl time.Duration) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.streams == 0 && now.Sub(v.lastSeen) > ttl
}

func (v *View) teardown() {
	v.cancel()
	v.Machine.Teardown()
	_ = v.store.Close()
}

// Registry owns every live view, keyed by the signed view cookie.
type Registry struct {
	factory    StoreFactory
	probe      billing.Probe
	catalog    *billing.Catalog
	cookies    *cookie.Manager
	cookieName string
	ttl        time.Duration
	log        *slog.Logger
	now        func() time.Time
	onCount    func(int)

	machineOpts    []authstate.Option
	trackerOpts    []billing.TrackerOption
	redirectorOpts []billing.RedirectorOption

	mu     sync.Mutex
	views  map[string]*View
	closed bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger. Nil keeps the discard logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(g *Registry) {
		if l != nil {
			g.log = l
		}
	}
}

// WithViewTTL evicts views idle for longer than ttl.
func WithViewTTL(ttl time.Duration) RegistryOption {
	return func(g *Registry) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithCookieName sets the view cookie name.
func WithCookieName(name string) RegistryOption {
	return func(g *Registry) {
		if name != "" {
			g.cookieName = name
		}
	}
}

// WithMachineOptions are applied to every new authstate.Machine.
func WithMachineOptions(opts ...authstate.Option) RegistryOption {
	return func(g *Registry) { g.machineOpts = append(g.machineOpts, opts...) }
}

// WithTrackerOptions are applied to every new billing.Tracker.
func WithTrackerOptions(opts ...billing.TrackerOption) RegistryOption {
	return func(g *Registry) { g.trackerOpts = append(g.trackerOpts, opts...) }
}

// WithRedirectorOptions are applied to every new billing.Redirector.
func WithRedirectorOptions(opts ...billing.RedirectorOption) RegistryOption {
	return func(g *Registry) { g.redirectorOpts = append(g.redirectorOpts, opts...) }
}

// WithViewCountHook is called with the number of live views after every change.
func WithViewCountHook(fn func(int)) RegistryOption {
	return func(g *Registry) { g.onCount = fn }
}

// WithRegistryClock overrides the time source.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(g *Registry) {
		if now != nil {
			g.now = now
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(factory StoreFactory, probe billing.Probe, catalog *billing.Catalog, cookies *cookie.Manager, opts ...RegistryOption) (*Registry, error) {
	if factory == nil {
		return nil, ErrNoStoreFactory
	}
	if catalog == nil {
		return nil, ErrNoCatalog
	}
	g := &Registry{
		factory:    factory,
		probe:      probe,
		catalog:    catalog,
		cookies:    cookies,
		cookieName: "seopilot_view",
		ttl:        30 * time.Minute,
		log:        logger.Discard(),
		now:        time.Now,
		views:      make(map[string]*View),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Resolve returns the view named by the request cookie, creating one and
// setting the cookie when there is none or it expired.
func (g *Registry) Resolve(w http.ResponseWriter, r *http.Request) (*View, error) {
	if id, err := g.cookies.GetSigned(r, g.cookieName); err == nil {
		if v, ok := g.Get(id); ok {
			return v, nil
		}
	}

	v, err := g.create(r.Context())
	if err != nil {
		return nil, err
	}
	g.cookies.SetSigned(w, g.cookieName, v.ID)
	return v, nil
}

// Lookup returns the view named by the request cookie without creating one.
func (g *Registry) Lookup(r *http.Request) (*View, error) {
	id, err := g.cookies.GetSigned(r, g.cookieName)
	if err != nil {
		return nil, ErrViewNotFound
	}
	v, ok := g.Get(id)
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// Get returns the live view with id and refreshes its idle timer.
func (g *Registry) Get(id string) (*View, bool) {
	g.mu.Lock()
	v, ok := g.views[id]
	g.mu.Unlock()
	if !ok {
		return nil, false
	}
	now := g.now()
	if v.idle(now, g.ttl) {
		g.evict(id)
		return nil, false
	}
	v.touch(now)
	return v, true
}

func (g *Registry) create(ctx context.Context) (*View, error) {
	id := uuid.NewString()
	log := g.log.With(logger.ViewID(id))

	store := g.factory()
	machine := authstate.New(store, append([]authstate.Option{authstate.WithLogger(log)}, g.machineOpts...)...)

	viewCtx, cancel := context.WithCancel(withViewID(context.WithoutCancel(ctx), id))
	if err := machine.Initialize(viewCtx); err != nil {
		cancel()
		machine.Teardown()
		_ = store.Close()
		return nil, fmt.Errorf("initialize view: %w", err)
	}

	v := &View{
		ID:         id,
		Machine:    machine,
		Tracker:    billing.NewTracker(g.probe, append([]billing.TrackerOption{billing.WithTrackerLogger(log)}, g.trackerOpts...)...),
		Redirector: billing.NewRedirector(g.catalog, append([]billing.RedirectorOption{billing.WithRedirectLogger(log)}, g.redirectorOpts...)...),
		store:      store,
		cancel:     cancel,
		lastSeen:   g.now(),
	}
	go func() { _ = v.Tracker.Watch(viewCtx, machine) }()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		v.teardown()
		return nil, ErrRegistryClosed
	}
	g.views[id] = v
	n := len(g.views)
	g.mu.Unlock()

	log.DebugContext(viewCtx, "view created", logger.Component("web"))
	g.count(n)
	return v, nil
}

// Sweep tears down every idle view and returns how many it removed.
func (g *Registry) Sweep() int {
	now := g.now()

	g.mu.Lock()
	var stale []*View
	for id, v := range g.views {
		if v.idle(now, g.ttl) {
			stale = append(stale, v)
			delete(g.views, id)
		}
	}
	n := len(g.views)
	g.mu.Unlock()

	for _, v := range stale {
		v.teardown()
	}
	if len(stale) > 0 {
		g.log.Debug("idle views evicted", logger.Component("web"), slog.Int("count", len(stale)))
		g.count(n)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done, then closes the registry.
func (g *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.Close()
			return
		case <-ticker.C:
			g.Sweep()
		}
	}
}

// Len returns the number of live views.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.views)
}

// Close tears down every view. Later Resolve calls fail.
func (g *Registry) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	views := make([]*View, 0, len(g.views))
	for _, v := range g.views {
		views = append(views, v)
	}
	clear(g.views)
	g.mu.Unlock()

	for _, v := range views {
		v.teardown()
	}
	g.count(0)
}

func (g *Registry) evict(id string) {
	g.mu.Lock()
	v, ok := g.views[id]
	if ok {
		delete(g.views, id)
	}
	n := len(g.views)
	g.mu.Unlock()

	if ok {
		v.teardown()
		g.count(n)
	}
}

func (g *Registry) count(n int) {
	if g.onCount != nil {
		g.onCount(n)
	}
}
