package authstate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
)

type fakeStore struct {
	mu           sync.Mutex
	fetch        func(ctx context.Context) (*authstate.Session, error)
	signUp       func(ctx context.Context, email, password string) error
	signIn       func(ctx context.Context, email, password string) error
	oauth        func(ctx context.Context, provider, redirectTo string) (string, error)
	signOut      func(ctx context.Context) error
	listeners    map[int]func(*authstate.Session)
	next         int
	calls        []string
	unsubscribed int
}

func newFakeStore() *fakeStore {
	return &fakeStore{listeners: make(map[int]func(*authstate.Session))}
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeStore) CurrentSession(ctx context.Context) (*authstate.Session, error) {
	f.record("current")
	if f.fetch != nil {
		return f.fetch(ctx)
	}
	return nil, nil
}

func (f *fakeStore) SignUp(ctx context.Context, email, password string) error {
	f.record("signup:" + email)
	if f.signUp != nil {
		return f.signUp(ctx, email, password)
	}
	return nil
}

func (f *fakeStore) SignInWithPassword(ctx context.Context, email, password string) error {
	f.record("signin:" + email)
	if f.signIn != nil {
		return f.signIn(ctx, email, password)
	}
	return nil
}

func (f *fakeStore) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	f.record("oauth:" + provider + ":" + redirectTo)
	if f.oauth != nil {
		return f.oauth(ctx, provider, redirectTo)
	}
	return "https://provider.example/authorize?p=" + provider, nil
}

func (f *fakeStore) SignOut(ctx context.Context) error {
	f.record("signout")
	if f.signOut != nil {
		return f.signOut(ctx)
	}
	return nil
}

func (f *fakeStore) OnSessionChange(fn func(*authstate.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
			f.unsubscribed++
		})
	}
}

func (f *fakeStore) push(s *authstate.Session) {
	f.mu.Lock()
	fns := make([]func(*authstate.Session), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeStore) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func session(id, email string) *authstate.Session {
	return &authstate.Session{AccessToken: "tok-" + id, User: authstate.User{ID: id, Email: email}}
}

func initialized(t *testing.T, store *fakeStore, opts ...authstate.Option) *authstate.Machine {
	t.Helper()
	m := authstate.New(store, opts...)
	t.Cleanup(m.Teardown)
	require.NoError(t, m.Initialize(context.Background()))
	waitReady(t, m)
	return m
}

func waitReady(t *testing.T, m *authstate.Machine) {
	t.Helper()
	select {
	case <-m.Ready():
	case <-time.After(time.Second):
		require.Fail(t, "machine never became ready")
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	t.Run("starts uninitialized", func(t *testing.T) {
		m := authstate.New(newFakeStore())
		defer m.Teardown()

		s := m.State()
		assert.Equal(t, authstate.PhaseUninitialized, s.Phase)
		assert.False(t, s.Loading)
		assert.Equal(t, authstate.ModeSignIn, s.Mode)
	})

	t.Run("fetched session authenticates", func(t *testing.T) {
		store := newFakeStore()
		store.fetch = func(context.Context) (*authstate.Session, error) { return session("u1", "a@b.com"), nil }
		m := initialized(t, store)

		require.Eventually(t, func() bool { return m.State().Phase == authstate.PhaseAuthenticated }, time.Second, 5*time.Millisecond)
		s := m.State()
		require.NotNil(t, s.Session)
		assert.Equal(t, "u1", s.Session.User.ID)
		assert.False(t, s.Loading)
		assert.True(t, s.EverAuthenticated)
		assert.Equal(t, 1, store.Listeners())
	})

	t.Run("loading while fetch is outstanding", func(t *testing.T) {
		store := newFakeStore()
		release := make(chan struct{})
		store.fetch = func(context.Context) (*authstate.Session, error) {
			<-release
			return nil, nil
		}
		m := authstate.New(store)
		defer m.Teardown()
		require.NoError(t, m.Initialize(context.Background()))

		s := m.State()
		assert.Equal(t, authstate.PhaseLoading, s.Phase)
		assert.True(t, s.Loading)

		close(release)
		waitReady(t, m)
		require.Eventually(t, func() bool { return !m.State().Loading }, time.Second, 5*time.Millisecond)
		assert.Equal(t, authstate.PhaseUnauthenticated, m.State().Phase)
	})

	t.Run("fetch failure resolves unauthenticated", func(t *testing.T) {
		store := newFakeStore()
		store.fetch = func(context.Context) (*authstate.Session, error) { return nil, errors.New("network down") }
		m := initialized(t, store)

		require.Eventually(t, func() bool { return m.State().Phase == authstate.PhaseUnauthenticated }, time.Second, 5*time.Millisecond)
		s := m.State()
		assert.Nil(t, s.Session)
		assert.False(t, s.Loading)
		assert.Empty(t, s.Error)
	})

	t.Run("late fetch does not override a push", func(t *testing.T) {
		store := newFakeStore()
		release := make(chan struct{})
		done := make(chan struct{})
		store.fetch = func(context.Context) (*authstate.Session, error) {
			defer close(done)
			<-release
			return nil, nil
		}
		m := authstate.New(store)
		defer m.Teardown()
		require.NoError(t, m.Initialize(context.Background()))

		store.push(session("u2", "b@c.com"))
		assert.False(t, m.State().Loading, "push clears initial loading")
		close(release)
		<-done

		require.Never(t, func() bool { return m.State().Session == nil }, 50*time.Millisecond, 5*time.Millisecond)
		assert.Equal(t, "u2", m.State().Session.User.ID)
		assert.Equal(t, authstate.PhaseAuthenticated, m.State().Phase)
	})

	t.Run("twice", func(t *testing.T) {
		m := initialized(t, newFakeStore())
		assert.ErrorIs(t, m.Initialize(context.Background()), authstate.ErrAlreadyInitialized)
	})

	t.Run("after teardown", func(t *testing.T) {
		store := newFakeStore()
		m := authstate.New(store)
		m.Teardown()
		assert.ErrorIs(t, m.Initialize(context.Background()), authstate.ErrTornDown)
		assert.Equal(t, 0, store.Listeners())
	})
}

func TestPushes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	m := initialized(t, store)

	store.push(session("u1", "a@b.com"))
	assert.Equal(t, authstate.PhaseAuthenticated, m.State().Phase)

	store.push(nil)
	s := m.State()
	assert.Equal(t, authstate.PhaseUnauthenticated, s.Phase)
	assert.Nil(t, s.Session)
	assert.True(t, s.EverAuthenticated)

	store.push(session("u3", "c@d.com"))
	assert.Equal(t, "u3", m.State().Session.User.ID)
}

func TestSubmitCredentials(t *testing.T) {
	t.Parallel()

	t.Run("required fields", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)

		err := m.SubmitCredentials(context.Background(), "  ", "secret")
		require.ErrorIs(t, err, authstate.ErrCredentialsRequired)
		err = m.SubmitCredentials(context.Background(), "a@b.com", "")
		require.ErrorIs(t, err, authstate.ErrCredentialsRequired)

		s := m.State()
		assert.Equal(t, authstate.ErrCredentialsRequired.Error(), s.Error)
		assert.Equal(t, "a@b.com", s.Email)
		assert.False(t, s.Loading)
		assert.Equal(t, []string{"current"}, store.Calls())
	})

	t.Run("sign in relies on push", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)

		require.NoError(t, m.SubmitCredentials(context.Background(), "a@b.com", "secret"))
		s := m.State()
		assert.Nil(t, s.Session)
		assert.False(t, s.Loading)
		assert.Empty(t, s.Error)
		assert.Contains(t, store.Calls(), "signin:a@b.com")

		store.push(session("u1", "a@b.com"))
		assert.NotNil(t, m.State().Session)
	})

	t.Run("sign up sets notice and never touches session", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store, authstate.WithMode(authstate.ModeSignUp))

		require.NoError(t, m.SubmitCredentials(context.Background(), "new@b.com", "secret"))
		s := m.State()
		assert.Equal(t, authstate.NoticeConfirmEmail, s.Notice)
		assert.Nil(t, s.Session)
		assert.False(t, s.Loading)
		assert.Contains(t, store.Calls(), "signup:new@b.com")
	})

	t.Run("failure surfaces provider message", func(t *testing.T) {
		store := newFakeStore()
		store.signIn = func(context.Context, string, string) error { return errors.New("Invalid login credentials") }
		m := initialized(t, store)

		err := m.SubmitCredentials(context.Background(), "a@b.com", "wrong")
		require.Error(t, err)
		s := m.State()
		assert.Equal(t, "Invalid login credentials", s.Error)
		assert.False(t, s.Loading)
		assert.Equal(t, authstate.ModeSignIn, s.Mode)
		assert.Nil(t, s.Session)

		store.signIn = nil
		require.NoError(t, m.SubmitCredentials(context.Background(), "a@b.com", "right"))
		assert.Empty(t, m.State().Error, "retry clears the error")
	})

	t.Run("loading only while in flight", func(t *testing.T) {
		store := newFakeStore()
		entered := make(chan struct{})
		release := make(chan struct{})
		store.signIn = func(context.Context, string, string) error {
			close(entered)
			<-release
			return nil
		}
		m := initialized(t, store)

		done := make(chan error, 1)
		go func() { done <- m.SubmitCredentials(context.Background(), "a@b.com", "secret") }()
		<-entered
		assert.True(t, m.State().Loading)

		close(release)
		require.NoError(t, <-done)
		assert.False(t, m.State().Loading)
	})
}

func TestStartOAuth(t *testing.T) {
	t.Parallel()

	t.Run("returns provider url with fixed redirect", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store, authstate.WithRedirectTarget("http://app.local/dashboard"))

		url, err := m.StartOAuth(context.Background(), "google")
		require.NoError(t, err)
		assert.Equal(t, "https://provider.example/authorize?p=google", url)
		assert.Contains(t, store.Calls(), "oauth:google:http://app.local/dashboard")
		assert.False(t, m.State().Loading)
	})

	t.Run("failure sets error", func(t *testing.T) {
		store := newFakeStore()
		store.oauth = func(context.Context, string, string) (string, error) {
			return "", errors.New("Unsupported provider: provider is not enabled")
		}
		m := initialized(t, store)

		url, err := m.StartOAuth(context.Background(), "github")
		require.Error(t, err)
		assert.Empty(t, url)
		assert.Equal(t, "Unsupported provider: provider is not enabled", m.State().Error)
		assert.False(t, m.State().Loading)
	})

	t.Run("empty url is an error", func(t *testing.T) {
		store := newFakeStore()
		store.oauth = func(context.Context, string, string) (string, error) { return "", nil }
		m := initialized(t, store)

		_, err := m.StartOAuth(context.Background(), "google")
		assert.ErrorIs(t, err, authstate.ErrNoRedirectURL)
	})

	t.Run("clears a previous notice", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)
		require.NoError(t, m.SignOut(context.Background()))
		require.Equal(t, authstate.NoticeSignedOut, m.State().Notice)

		_, err := m.StartOAuth(context.Background(), "google")
		require.NoError(t, err)
		assert.Empty(t, m.State().Notice)

		require.NoError(t, m.SignOut(context.Background()))
		store.signOut = func(context.Context) error { return errors.New("session not found") }
		require.Error(t, m.SignOut(context.Background()))
		assert.Empty(t, m.State().Notice)
	})

	t.Run("provider required", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)

		_, err := m.StartOAuth(context.Background(), "")
		assert.ErrorIs(t, err, authstate.ErrProviderRequired)
		assert.Equal(t, []string{"current"}, store.Calls())
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	t.Run("success sets notice and waits for push", func(t *testing.T) {
		store := newFakeStore()
		store.fetch = func(context.Context) (*authstate.Session, error) { return session("u1", "a@b.com"), nil }
		m := initialized(t, store)
		require.Eventually(t, func() bool { return m.State().Session != nil }, time.Second, 5*time.Millisecond)

		require.NoError(t, m.SignOut(context.Background()))
		s := m.State()
		assert.Equal(t, authstate.NoticeSignedOut, s.Notice)
		assert.NotNil(t, s.Session)
		assert.False(t, s.Loading)

		store.push(nil)
		assert.Nil(t, m.State().Session)
	})

	t.Run("failure", func(t *testing.T) {
		store := newFakeStore()
		store.signOut = func(context.Context) error { return errors.New("session not found") }
		m := initialized(t, store)

		require.Error(t, m.SignOut(context.Background()))
		s := m.State()
		assert.Equal(t, "session not found", s.Error)
		assert.Empty(t, s.Notice)
		assert.False(t, s.Loading)
	})
}

func TestMode(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.signIn = func(context.Context, string, string) error { return errors.New("bad") }
	m := initialized(t, store)

	_ = m.SubmitCredentials(context.Background(), "a@b.com", "x")
	require.NotEmpty(t, m.State().Error)

	m.ToggleMode()
	assert.Equal(t, authstate.ModeSignUp, m.State().Mode)
	assert.Empty(t, m.State().Error)

	m.SetMode(authstate.ModeSignIn)
	assert.Equal(t, authstate.ModeSignIn, m.State().Mode)

	assert.Equal(t, authstate.ModeSignUp, authstate.ParseMode("signup"))
	assert.Equal(t, authstate.ModeSignIn, authstate.ParseMode("whatever"))
}

func TestTeardown(t *testing.T) {
	t.Parallel()

	t.Run("idempotent and stops updates", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)
		sub := m.Subscribe(context.Background())

		m.Teardown()
		assert.NotPanics(t, m.Teardown)
		assert.True(t, m.Closed())
		assert.Equal(t, 0, store.Listeners())
		assert.Equal(t, 1, store.unsubscribed)

		before := m.State()
		store.push(session("u1", "a@b.com"))
		assert.Equal(t, before, m.State())

		for range sub.Receive(context.Background()) {
		}
	})

	t.Run("in-flight result is discarded", func(t *testing.T) {
		store := newFakeStore()
		entered := make(chan struct{})
		release := make(chan struct{})
		store.signIn = func(context.Context, string, string) error {
			close(entered)
			<-release
			return errors.New("late failure")
		}
		m := initialized(t, store)

		done := make(chan error, 1)
		go func() { done <- m.SubmitCredentials(context.Background(), "a@b.com", "secret") }()
		<-entered
		m.Teardown()
		version := m.State().Version

		close(release)
		require.Error(t, <-done)
		assert.Empty(t, m.State().Error)
		assert.Equal(t, version, m.State().Version)
	})

	t.Run("actions after teardown", func(t *testing.T) {
		store := newFakeStore()
		m := initialized(t, store)
		m.Teardown()

		assert.ErrorIs(t, m.SubmitCredentials(context.Background(), "a@b.com", "x"), authstate.ErrTornDown)
		_, err := m.StartOAuth(context.Background(), "google")
		assert.ErrorIs(t, err, authstate.ErrTornDown)
		assert.ErrorIs(t, m.SignOut(context.Background()), authstate.ErrTornDown)
		assert.Equal(t, []string{"current"}, store.Calls())
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	m := initialized(t, store)
	require.Eventually(t, func() bool { return !m.State().Loading }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := m.Subscribe(ctx)

	first := <-sub.Receive(ctx)
	assert.Equal(t, m.State().Version, first.Data.Version)

	store.push(session("u1", "a@b.com"))
	select {
	case msg := <-sub.Receive(ctx):
		assert.True(t, msg.Data.Authenticated())
		assert.Greater(t, msg.Data.Version, first.Data.Version)
	case <-time.After(time.Second):
		require.Fail(t, "no snapshot after push")
	}
}

func TestUserDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada", authstate.User{Metadata: map[string]any{"full_name": "Ada", "name": "A"}}.DisplayName())
	assert.Equal(t, "A", authstate.User{Metadata: map[string]any{"name": "A"}}.DisplayName())
	assert.Empty(t, authstate.User{}.DisplayName())

	s := &authstate.Session{User: authstate.User{Metadata: map[string]any{"name": "A"}}}
	c := s.Clone()
	c.User.Metadata["name"] = "B"
	assert.Equal(t, "A", s.User.Metadata["name"])
	assert.Nil(t, (*authstate.Session)(nil).Clone())
}
