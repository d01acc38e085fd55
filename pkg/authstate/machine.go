package authstate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/seopilot/pkg/broadcast"
	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/statemachine"
)

const (
	evInit           = statemachine.StringEvent("init")
	evSessionPresent = statemachine.StringEvent("session_present")
	evSessionAbsent  = statemachine.StringEvent("session_absent")
)

func newPhases() *statemachine.SimpleStateMachine {
	var (
		uninitialized   = statemachine.StringState(PhaseUninitialized)
		loading         = statemachine.StringState(PhaseLoading)
		unauthenticated = statemachine.StringState(PhaseUnauthenticated)
		authenticated   = statemachine.StringState(PhaseAuthenticated)
	)
	return statemachine.MustNew(uninitialized,
		statemachine.WithTransition(uninitialized, loading, evInit),
		statemachine.WithTransitionFrom(authenticated, evSessionPresent, loading, unauthenticated, authenticated),
		statemachine.WithTransitionFrom(unauthenticated, evSessionAbsent, loading, unauthenticated, authenticated),
	)
}

// Machine mirrors a Store's session into locally observable State and runs
// the sign-in, sign-up, OAuth and sign-out actions against it.
//
// A Machine belongs to one view. All methods are safe for concurrent use;
// provider calls run without holding the internal lock.
type Machine struct {
	store      Store
	log        *slog.Logger
	redirectTo string
	hooks      []ActionHook

	mu           sync.Mutex
	state        State
	phases       *statemachine.SimpleStateMachine
	version      uint64
	pushSeq      uint64
	initialized  bool
	initializing bool
	pending      int
	closed       bool
	unsubscribe  func()
	ready        chan struct{}
	readyOnce    sync.Once

	updates *broadcast.MemoryBroadcaster[State]
}

// New creates a Machine over store in PhaseUninitialized.
func New(store Store, opts ...Option) *Machine {
	m := &Machine{
		store:   store,
		log:     logger.Discard(),
		state:   State{Mode: ModeSignIn},
		phases:  newPhases(),
		ready:   make(chan struct{}),
		updates: broadcast.NewMemoryBroadcaster[State](1, broadcast.WithReplayLatest()),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	m.publishLocked()
	m.mu.Unlock()
	return m
}

// Initialize registers the session change listener and fetches the current
// session in the background. Pushed sessions always win; the fetch result is
// applied only when no push arrived after it was issued.
func (m *Machine) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrTornDown
	}
	if m.initialized {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.initialized = true
	m.initializing = true
	m.firePhaseLocked(evInit)
	m.publishLocked()
	m.mu.Unlock()

	unsubscribe := m.store.OnSessionChange(m.handlePush)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return ErrTornDown
	}
	m.unsubscribe = unsubscribe
	issuedAt := m.pushSeq
	m.mu.Unlock()

	go m.fetch(context.WithoutCancel(ctx), issuedAt)
	return nil
}

func (m *Machine) fetch(ctx context.Context, issuedAt uint64) {
	start := time.Now()
	session, err := m.store.CurrentSession(ctx)
	m.report(ActionFetch, err, time.Since(start))

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if err != nil {
		m.log.WarnContext(ctx, "failed to fetch current session",
			logger.Component("authstate"), logger.Error(err))
		session = nil
	}
	if m.pushSeq == issuedAt {
		m.applySessionLocked(session)
	}
	m.finishInitLocked()
	m.publishLocked()
}

func (m *Machine) handlePush(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.pushSeq++
	m.applySessionLocked(session)
	m.finishInitLocked()
	m.publishLocked()
}

// SubmitCredentials signs in or up depending on the current Mode.
// Sign-up success only sets a confirmation notice; the session arrives
// through the change listener once the provider has one.
func (m *Machine) SubmitCredentials(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.state.Email = email
	m.state.Notice = ""
	if email == "" || password == "" {
		m.state.Error = ErrCredentialsRequired.Error()
		m.publishLocked()
		m.mu.Unlock()
		return ErrCredentialsRequired
	}
	mode := m.state.Mode
	m.beginLocked()
	m.mu.Unlock()

	var err error
	start := time.Now()
	action := ActionSignIn
	if mode == ModeSignUp {
		action = ActionSignUp
		err = m.store.SignUp(ctx, email, password)
	} else {
		err = m.store.SignInWithPassword(ctx, email, password)
	}
	m.report(action, err, time.Since(start))

	m.end(ctx, action, err, func(s *State) {
		if mode == ModeSignUp {
			s.Notice = NoticeConfirmEmail
		}
	})
	return err
}

// StartOAuth asks the provider for the URL that starts the OAuth flow.
// The caller navigates the browser there.
func (m *Machine) StartOAuth(ctx context.Context, provider string) (string, error) {
	provider = strings.TrimSpace(provider)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrTornDown
	}
	if provider == "" {
		m.state.Error = ErrProviderRequired.Error()
		m.publishLocked()
		m.mu.Unlock()
		return "", ErrProviderRequired
	}
	m.beginLocked()
	m.mu.Unlock()

	start := time.Now()
	url, err := m.store.SignInWithOAuth(ctx, provider, m.redirectTo)
	if err == nil && url == "" {
		err = ErrNoRedirectURL
	}
	m.report(ActionOAuth, err, time.Since(start))

	m.end(ctx, ActionOAuth, err, nil)
	if err != nil {
		return "", err
	}
	return url, nil
}

// SignOut ends the provider session. The session is cleared by the change
// listener, not here.
func (m *Machine) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.beginLocked()
	m.mu.Unlock()

	start := time.Now()
	err := m.store.SignOut(ctx)
	m.report(ActionSignOut, err, time.Since(start))

	m.end(ctx, ActionSignOut, err, func(s *State) {
		s.Notice = NoticeSignedOut
	})
	return err
}

// SetMode switches the credentials form mode and clears the error.
func (m *Machine) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.state.Mode = mode
	m.state.Error = ""
	m.publishLocked()
}

// ToggleMode flips between sign-in and sign-up.
func (m *Machine) ToggleMode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.state.Mode = m.state.Mode.Toggle()
	m.state.Error = ""
	m.publishLocked()
}

// Teardown unregisters the change listener and closes every State
// subscriber. Results that arrive afterwards are discarded. Idempotent.
func (m *Machine) Teardown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	m.readyOnce.Do(func() { close(m.ready) })
	_ = m.updates.Close()
}

// Closed reports whether Teardown ran.
func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe delivers the current snapshot and then one after every applied
// mutation. Intermediate snapshots may be skipped for slow readers.
func (m *Machine) Subscribe(ctx context.Context) broadcast.Subscriber[State] {
	return m.updates.Subscribe(ctx)
}

// Ready is closed once the initial loading has resolved or on Teardown.
func (m *Machine) Ready() <-chan struct{} {
	return m.ready
}

func (m *Machine) beginLocked() {
	m.pending++
	m.state.Error = ""
	m.state.Notice = ""
	m.publishLocked()
}

func (m *Machine) end(ctx context.Context, action string, err error, onSuccess func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending--
	if m.closed {
		return
	}
	if err != nil {
		m.log.InfoContext(ctx, "auth action failed",
			logger.Component("authstate"), logger.Action(action), logger.Error(err))
		m.state.Error = err.Error()
	} else if onSuccess != nil {
		onSuccess(&m.state)
	}
	m.publishLocked()
}

func (m *Machine) applySessionLocked(session *Session) {
	m.state.Session = session.Clone()
	if session != nil {
		m.state.EverAuthenticated = true
		m.firePhaseLocked(evSessionPresent)
		return
	}
	m.firePhaseLocked(evSessionAbsent)
}

func (m *Machine) finishInitLocked() {
	if !m.initializing {
		return
	}
	m.initializing = false
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Machine) firePhaseLocked(ev statemachine.Event) {
	if err := m.phases.Fire(context.Background(), ev, nil); err != nil {
		m.log.Error("illegal auth phase transition",
			logger.Component("authstate"), logger.Error(err))
	}
}

func (m *Machine) snapshotLocked() State {
	s := m.state
	s.Session = m.state.Session.Clone()
	s.Phase = Phase(m.phases.Current().Name())
	s.Loading = m.initializing || m.pending > 0
	s.Version = m.version
	return s
}

func (m *Machine) publishLocked() {
	m.version++
	_ = m.updates.Broadcast(context.Background(), broadcast.Message[State]{Data: m.snapshotLocked()})
}

func (m *Machine) report(action string, err error, elapsed time.Duration) {
	for _, h := range m.hooks {
		h(action, err, elapsed)
	}
}
