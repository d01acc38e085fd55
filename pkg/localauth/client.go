package localauth

import (
	"context"
	"sync"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
)

// Client is the session of one view backed by a Directory.
type Client struct {
	dir *Directory

	// deliver serializes pushes so listeners observe them in order.
	deliver sync.Mutex

	mu        sync.Mutex
	session   *authstate.Session
	listeners map[uint64]func(*authstate.Session)
	nextID    uint64
	closed    bool
}

var _ authstate.Store = (*Client)(nil)

// NewClient creates a signed-out Client.
func (d *Directory) NewClient() *Client {
	return &Client{dir: d, listeners: make(map[uint64]func(*authstate.Session))}
}

// CurrentSession returns the session, re-issuing its token once expired.
func (c *Client) CurrentSession(context.Context) (*authstate.Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	current := c.session.Clone()
	c.mu.Unlock()

	if current == nil || c.dir.now().Before(current.ExpiresAt) {
		return current, nil
	}
	next, err := c.dir.Issue(current.User)
	if err != nil {
		return nil, err
	}
	c.push(next)
	return next, nil
}

// SignUp registers the account. Without required confirmation the new
// session is pushed right away.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	user, confirmed, err := c.dir.Register(ctx, email, password, nil)
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	session, err := c.dir.Issue(user)
	if err != nil {
		return err
	}
	c.push(session)
	return nil
}

// SignInWithPassword authenticates and pushes the new session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	user, err := c.dir.Authenticate(ctx, email, password)
	if err != nil {
		return err
	}
	session, err := c.dir.Issue(user)
	if err != nil {
		return err
	}
	c.push(session)
	return nil
}

// SignInWithOAuth always fails with ErrOAuthUnavailable.
func (c *Client) SignInWithOAuth(context.Context, string, string) (string, error) {
	return "", ErrOAuthUnavailable
}

// SignOut pushes nil.
func (c *Client) SignOut(context.Context) error {
	c.push(nil)
	return nil
}

// OnSessionChange registers fn and calls it with the current session before
// returning. Later pushes are delivered on the pushing goroutine.
func (c *Client) OnSessionChange(fn func(*authstate.Session)) func() {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.session.Clone()
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Close drops every listener. Further pushes are ignored.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	clear(c.listeners)
	return nil
}

func (c *Client) push(s *authstate.Session) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session = s.Clone()
	fns := make([]func(*authstate.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s.Clone())
	}
}

// Probe implements billing.Probe for setups without a billing provider.
// Every signed-in user is reported as not subscribed.
type Probe struct{}

func (Probe) CheckSubscription(_ context.Context, session *authstate.Session) (billing.Status, error) {
	if session == nil {
		return billing.Status{}, billing.ErrNotAuthenticated
	}
	return billing.Status{}, nil
}
