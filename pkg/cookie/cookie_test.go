package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seopilot/pkg/cookie"
)

const (
	secret    = "this-is-a-very-long-secret-key-32-chars-long"
	oldSecret = "this-is-old-very-long-secret-key-32-chars-ok"
)

func roundTrip(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := cookie.New(nil)
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"", ""})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	assert.ErrorIs(t, err, cookie.ErrSecretTooShort)

	_, err = cookie.New([]string{secret, oldSecret})
	assert.NoError(t, err)
}

func TestSigned(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret}, cookie.WithSecure(true))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.SetSigned(rec, "view", "abc-123")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		assert.NotContains(t, cookies[0].Value, "abc-123")

		v, err := m.GetSigned(roundTrip(t, rec), "view")
		require.NoError(t, err)
		assert.Equal(t, "abc-123", v)
	})

	t.Run("missing cookie", func(t *testing.T) {
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "view")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
	})

	t.Run("tampered value", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.SetSigned(rec, "view", "abc")
		c := rec.Result().Cookies()[0]
		_, sig, _ := strings.Cut(c.Value, ".")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "view", Value: "eHl6." + sig})
		_, err := m.GetSigned(req, "view")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})

	t.Run("invalid format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "view", Value: "no-separator"})
		_, err := m.GetSigned(req, "view")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})

	t.Run("delete expires cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.Delete(rec, "view")
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestRotation(t *testing.T) {
	t.Parallel()

	old, err := cookie.New([]string{oldSecret})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secret, oldSecret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	old.SetSigned(rec, "view", "v1")

	v, err := rotated.GetSigned(roundTrip(t, rec), "view")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{Secrets: []string{secret}, Secure: true, MaxAge: 60})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetSigned(rec, "view", "x")
	c := rec.Result().Cookies()[0]
	assert.True(t, c.Secure)
	assert.Equal(t, 60, c.MaxAge)
}
