package billing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/broadcast"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// NoticeProbeFailed is shown when the subscription status could not be fetched.
const NoticeProbeFailed = "Subscription status could not be loaded."

// StateSource publishes auth state snapshots. *authstate.Machine implements it.
type StateSource interface {
	Subscribe(ctx context.Context) broadcast.Subscriber[authstate.State]
}

// Tracker keeps the current subscription tier of one view in sync with the
// session. A failed probe keeps the last known tier.
type Tracker struct {
	probe   Probe
	log     *slog.Logger
	onProbe func(err error)

	mu           sync.Mutex
	tier         string
	owner        string
	notice       string
	issued       uint64
	observed     bool
	lastUser     string
	lastSignedIn bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger. Nil keeps the discard logger.
func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithProbeHook is called after every probe call with its error.
func WithProbeHook(fn func(err error)) TrackerOption {
	return func(t *Tracker) { t.onProbe = fn }
}

// NewTracker creates a Tracker with no known tier.
func NewTracker(probe Probe, opts ...TrackerOption) *Tracker {
	t := &Tracker{probe: probe, log: logger.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Refresh probes the subscription of session. Without a session the tier
// is cleared. Only the most recently issued refresh is applied. A known tier
// survives a failed probe only for the user it was stored for.
func (t *Tracker) Refresh(ctx context.Context, session *authstate.Session) error {
	t.mu.Lock()
	t.issued++
	seq := t.issued
	if session == nil {
		t.tier = ""
		t.owner = ""
		t.notice = ""
		t.mu.Unlock()
		return nil
	}
	if session.User.ID != t.owner {
		t.tier = ""
		t.owner = ""
	}
	t.mu.Unlock()

	status, err := t.probe.CheckSubscription(ctx, session)
	if t.onProbe != nil {
		t.onProbe(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.issued {
		return err
	}
	if err != nil {
		t.log.ErrorContext(ctx, "failed to check subscription",
			logger.Component("billing"), logger.UserID(session.User.ID), logger.Error(err))
		t.notice = NoticeProbeFailed
		return err
	}

	t.notice = ""
	if status.Subscribed && status.Tier != "" {
		t.tier = status.Tier
		t.owner = session.User.ID
	} else {
		t.tier = ""
		t.owner = ""
	}
	return nil
}

// Observe refreshes on the first call and whenever session presence or the
// signed-in user changes. Other state changes are ignored.
func (t *Tracker) Observe(ctx context.Context, s authstate.State) {
	signedIn := s.Session != nil
	user := ""
	if signedIn {
		user = s.Session.User.ID
	}

	t.mu.Lock()
	if t.observed && signedIn == t.lastSignedIn && user == t.lastUser {
		t.mu.Unlock()
		return
	}
	t.observed = true
	t.lastUser = user
	t.lastSignedIn = signedIn
	t.mu.Unlock()

	_ = t.Refresh(ctx, s.Session)
}

// Watch feeds every snapshot of src into Observe until ctx is done or the
// source closes its stream.
func (t *Tracker) Watch(ctx context.Context, src StateSource) error {
	sub := src.Subscribe(ctx)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return nil
			}
			t.Observe(ctx, msg.Data)
		}
	}
}

// Tier returns the known subscription tier.
func (t *Tracker) Tier() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tier, t.tier != ""
}

// Notice returns the probe failure notice, if any.
func (t *Tracker) Notice() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notice
}

// IsCurrent reports whether planName is the known tier.
func (t *Tracker) IsCurrent(planName string) bool {
	tier, ok := t.Tier()
	return ok && tier == planName
}
