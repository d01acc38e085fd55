package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/supabase"
)

const anonKey = "anon-key"

func newProject(t *testing.T, handler http.HandlerFunc, opts ...supabase.Option) *supabase.Project {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := supabase.New(srv.URL, anonKey, opts...)
	require.NoError(t, err)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func tokenBody(access string) map[string]any {
	return map[string]any{
		"access_token":  access,
		"refresh_token": "refresh-" + access,
		"expires_in":    3600,
		"user": map[string]any{
			"id":            "user-1",
			"email":         "a@b.com",
			"user_metadata": map[string]any{"full_name": "Ada"},
		},
	}
}

func listen(t *testing.T, c *supabase.Client) <-chan *authstate.Session {
	t.Helper()
	ch := make(chan *authstate.Session, 8)
	unsubscribe := c.OnSessionChange(func(s *authstate.Session) { ch <- s })
	t.Cleanup(unsubscribe)
	return ch
}

func nextPush(t *testing.T, ch <-chan *authstate.Session) *authstate.Session {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no session push")
		return nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := supabase.New("", anonKey)
	assert.ErrorIs(t, err, supabase.ErrURLRequired)

	_, err = supabase.New("http://localhost:54321", "")
	assert.ErrorIs(t, err, supabase.ErrAnonKeyRequired)

	_, err = supabase.New("not a url", anonKey)
	assert.Error(t, err)

	p, err := supabase.NewFromConfig(supabase.Config{URL: "http://localhost:54321/", AnonKey: anonKey, Timeout: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestClient_SignInWithPassword(t *testing.T) {
	t.Parallel()

	t.Run("pushes the new session", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, anonKey, r.Header.Get("apikey"))
			assert.Equal(t, "Bearer "+anonKey, r.Header.Get("Authorization"))
			assert.Equal(t, map[string]string{"email": "a@b.com", "password": "secret1"}, readBody(t, r))
			writeJSON(w, http.StatusOK, tokenBody("at-1"))
		})
		c := p.NewClient()
		t.Cleanup(func() { _ = c.Close() })
		pushes := listen(t, c)

		require.NoError(t, c.SignInWithPassword(context.Background(), "a@b.com", "secret1"))

		s := nextPush(t, pushes)
		require.NotNil(t, s)
		assert.Equal(t, "at-1", s.AccessToken)
		assert.Equal(t, "Ada", s.User.DisplayName())

		current, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "user-1", current.User.ID)
	})

	t.Run("provider message is the error", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"code": 400, "error_code": "invalid_credentials", "msg": "Invalid login credentials",
			})
		})
		c := p.NewClient()

		err := c.SignInWithPassword(context.Background(), "a@b.com", "wrong")
		require.Error(t, err)
		assert.Equal(t, "Invalid login credentials", err.Error())
		assert.True(t, supabase.IsStatus(err, http.StatusBadRequest))

		current, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("legacy error description", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "invalid_grant", "error_description": "Email not confirmed",
			})
		})

		err := p.NewClient().SignInWithPassword(context.Background(), "a@b.com", "x")
		require.Error(t, err)
		assert.Equal(t, "Email not confirmed", err.Error())
	})
}

func TestClient_SignUp(t *testing.T) {
	t.Parallel()

	t.Run("confirmation required pushes nothing", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"id": "user-1", "email": "a@b.com"})
		})
		c := p.NewClient()
		pushes := listen(t, c)

		require.NoError(t, c.SignUp(context.Background(), "a@b.com", "secret1"))

		select {
		case s := <-pushes:
			t.Fatalf("unexpected push %+v", s)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("auto confirmed pushes session", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, tokenBody("at-2"))
		})
		c := p.NewClient()
		pushes := listen(t, c)

		require.NoError(t, c.SignUp(context.Background(), "a@b.com", "secret1"))
		s := nextPush(t, pushes)
		require.NotNil(t, s)
		assert.Equal(t, "at-2", s.AccessToken)
	})

	t.Run("rejected", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"msg": "User already registered"})
		})

		err := p.NewClient().SignUp(context.Background(), "a@b.com", "secret1")
		require.Error(t, err)
		assert.Equal(t, "User already registered", err.Error())
	})
}

func TestClient_OAuth(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		verifier string
	)
	p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		body := readBody(t, r)
		assert.Equal(t, "code-1", body["auth_code"])
		mu.Lock()
		verifier = body["code_verifier"]
		mu.Unlock()
		writeJSON(w, http.StatusOK, tokenBody("at-oauth"))
	})
	c := p.NewClient()
	pushes := listen(t, c)

	err := c.ExchangeCode(context.Background(), "code-1")
	assert.ErrorIs(t, err, supabase.ErrNoCodeVerifier)

	raw, err := c.SignInWithOAuth(context.Background(), "google", "http://app.local/dashboard")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "http://app.local/dashboard", u.Query().Get("redirect_to"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))

	assert.ErrorIs(t, c.ExchangeCode(context.Background(), " "), supabase.ErrCodeRequired)
	require.NoError(t, c.ExchangeCode(context.Background(), "code-1"))

	mu.Lock()
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), u.Query().Get("code_challenge"))
	mu.Unlock()

	s := nextPush(t, pushes)
	require.NotNil(t, s)
	assert.Equal(t, "at-oauth", s.AccessToken)

	assert.ErrorIs(t, c.ExchangeCode(context.Background(), "code-1"), supabase.ErrNoCodeVerifier)
}

func TestClient_SignOut(t *testing.T) {
	t.Parallel()

	for _, logoutStatus := range []int{http.StatusNoContent, http.StatusNotFound} {
		p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/auth/v1/token":
				writeJSON(w, http.StatusOK, tokenBody("at-3"))
			case "/auth/v1/logout":
				assert.Equal(t, "Bearer at-3", r.Header.Get("Authorization"))
				assert.Equal(t, "local", r.URL.Query().Get("scope"))
				w.WriteHeader(logoutStatus)
			}
		})
		c := p.NewClient()
		pushes := listen(t, c)

		require.NoError(t, c.SignInWithPassword(context.Background(), "a@b.com", "secret1"))
		require.NotNil(t, nextPush(t, pushes))

		require.NoError(t, c.SignOut(context.Background()))
		assert.Nil(t, nextPush(t, pushes))
	}

	t.Run("server failure keeps the session", func(t *testing.T) {
		p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/auth/v1/logout" {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
				return
			}
			writeJSON(w, http.StatusOK, tokenBody("at-4"))
		})
		c := p.NewClient()
		require.NoError(t, c.SignInWithPassword(context.Background(), "a@b.com", "secret1"))

		err := c.SignOut(context.Background())
		require.Error(t, err)
		assert.Equal(t, "boom", err.Error())

		current, err := c.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, current)
	})
}

func TestClient_CurrentSessionRefresh(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	var refreshed atomic.Int32
	p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			writeJSON(w, http.StatusOK, tokenBody("at-old"))
		case "refresh_token":
			assert.Equal(t, "refresh-at-old", readBody(t, r)["refresh_token"])
			refreshed.Add(1)
			writeJSON(w, http.StatusOK, tokenBody("at-new"))
		}
	}, supabase.WithClock(clock))
	c := p.NewClient()
	require.NoError(t, c.SignInWithPassword(context.Background(), "a@b.com", "secret1"))

	s, err := c.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-old", s.AccessToken)
	assert.Zero(t, refreshed.Load())

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	s, err = c.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "at-new", s.AccessToken)
	assert.Equal(t, int32(1), refreshed.Load())
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	p := newProject(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, tokenBody("at-5"))
	})
	c := p.NewClient()
	unsubscribe := c.OnSessionChange(func(*authstate.Session) {})
	defer unsubscribe()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.CurrentSession(context.Background())
	assert.ErrorIs(t, err, supabase.ErrClientClosed)
	_, err = c.SignInWithOAuth(context.Background(), "google", "")
	assert.ErrorIs(t, err, supabase.ErrClientClosed)
}

func TestProject_Functions(t *testing.T) {
	t.Parallel()

	p := newProject(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer at-6", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/functions/v1/check-subscription":
			writeJSON(w, http.StatusOK, map[string]any{"subscribed": true, "subscription_tier": "Pro"})
		case "/functions/v1/customer-portal":
			assert.Equal(t, "http://app.local/pricing", readBody(t, r)["returnUrl"])
			writeJSON(w, http.StatusOK, map[string]any{"url": "https://billing.example/p/1"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "No such function"})
		}
	})
	session := &authstate.Session{AccessToken: "at-6"}

	var probe billing.Probe = p
	status, err := probe.CheckSubscription(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, billing.Status{Subscribed: true, Tier: "Pro"}, status)

	var portal billing.Portal = p
	target, err := portal.CustomerPortal(context.Background(), session, "http://app.local/pricing")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example/p/1", target)

	err = p.Invoke(context.Background(), "missing", session, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such function")

	_, err = p.CheckSubscription(context.Background(), nil)
	assert.ErrorIs(t, err, supabase.ErrNotSignedIn)
}
