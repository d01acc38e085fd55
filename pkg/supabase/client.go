package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/broadcast"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// refreshMargin renews sessions slightly before they expire.
const refreshMargin = 10 * time.Second

// Client is the authentication state of one view. It implements authstate.Store.
type Client struct {
	project *Project
	changes *broadcast.MemoryBroadcaster[*authstate.Session]

	mu       sync.Mutex
	session  *authstate.Session
	verifier string
	closed   bool
}

var _ authstate.Store = (*Client)(nil)

// NewClient creates a signed-out Client bound to the project.
func (p *Project) NewClient() *Client {
	return &Client{
		project: p,
		changes: broadcast.NewMemoryBroadcaster[*authstate.Session](1, broadcast.WithReplayLatest()),
	}
}

type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int64          `json:"expires_in"`
	ExpiresAt    int64          `json:"expires_at"`
	User         authstate.User `json:"user"`
}

func (t tokenResponse) session(now time.Time) *authstate.Session {
	if t.AccessToken == "" {
		return nil
	}
	expires := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	if t.ExpiresAt > 0 {
		expires = time.Unix(t.ExpiresAt, 0)
	}
	return &authstate.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expires,
		User:         t.User,
	}
}

// CurrentSession returns the session, refreshing it first when it is about
// to expire. A rejected refresh signs the view out.
func (c *Client) CurrentSession(ctx context.Context) (*authstate.Session, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	current := c.session.Clone()
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if current.ExpiresAt.IsZero() || c.project.now().Add(refreshMargin).Before(current.ExpiresAt) {
		return current, nil
	}
	if current.RefreshToken == "" {
		c.setSession(nil)
		return nil, nil
	}

	var resp tokenResponse
	err := c.project.do(ctx, http.MethodPost, "/auth/v1/token", grant("refresh_token"), "",
		map[string]string{"refresh_token": current.RefreshToken}, &resp)
	if err != nil {
		if IsStatus(err, http.StatusBadRequest) || IsStatus(err, http.StatusUnauthorized) {
			c.project.log.InfoContext(ctx, "session refresh rejected",
				logger.Component("supabase"), logger.UserID(current.User.ID), logger.Error(err))
			c.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	next := resp.session(c.project.now())
	c.setSession(next)
	return next.Clone(), nil
}

// SignUp registers a user. When the project auto-confirms, the returned
// session is pushed to listeners; otherwise the user must confirm first.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	var resp tokenResponse
	if err := c.project.do(ctx, http.MethodPost, "/auth/v1/signup", nil, "",
		map[string]string{"email": email, "password": password}, &resp); err != nil {
		return err
	}
	if s := resp.session(c.project.now()); s != nil {
		c.setSession(s)
	}
	return nil
}

// SignInWithPassword exchanges credentials for a session and pushes it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var resp tokenResponse
	if err := c.project.do(ctx, http.MethodPost, "/auth/v1/token", grant("password"), "",
		map[string]string{"email": email, "password": password}, &resp); err != nil {
		return err
	}
	c.setSession(resp.session(c.project.now()))
	return nil
}

// SignInWithOAuth starts a PKCE flow and returns the authorize URL. The
// verifier stays with the Client until ExchangeCode consumes it.
func (c *Client) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	verifier := oauth2.GenerateVerifier()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClientClosed
	}
	c.verifier = verifier
	c.mu.Unlock()

	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")
	return c.project.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

// ExchangeCode completes the OAuth redirect started by SignInWithOAuth and
// pushes the resulting session.
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}

	c.mu.Lock()
	verifier := c.verifier
	c.mu.Unlock()
	if verifier == "" {
		return ErrNoCodeVerifier
	}

	var resp tokenResponse
	if err := c.project.do(ctx, http.MethodPost, "/auth/v1/token", grant("pkce"), "",
		map[string]string{"auth_code": code, "code_verifier": verifier}, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.verifier = ""
	c.mu.Unlock()
	c.setSession(resp.session(c.project.now()))
	return nil
}

// SignOut revokes the session and pushes nil. A session the project no
// longer knows is cleared locally without error.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session.Clone()
	c.mu.Unlock()

	if current != nil {
		q := url.Values{}
		q.Set("scope", "local")
		err := c.project.do(ctx, http.MethodPost, "/auth/v1/logout", q, current.AccessToken, nil, nil)
		if err != nil && !isSessionGone(err) {
			return err
		}
	}
	c.setSession(nil)
	return nil
}

// OnSessionChange delivers every pushed session to fn on a dedicated
// goroutine. The latest pushed value, if any, is delivered first.
func (c *Client) OnSessionChange(fn func(*authstate.Session)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := c.changes.Subscribe(ctx)
	go func() {
		for msg := range sub.Receive(ctx) {
			fn(msg.Data.Clone())
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = sub.Close()
		})
	}
}

// Close stops every listener. Further pushes are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.changes.Close()
}

func (c *Client) setSession(s *authstate.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.session = s.Clone()
	_ = c.changes.Broadcast(context.Background(), broadcast.Message[*authstate.Session]{Data: s.Clone()})
}

func grant(kind string) url.Values {
	return url.Values{"grant_type": []string{kind}}
}

func isSessionGone(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
