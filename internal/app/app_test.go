package app_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seopilot/internal/app"
	"github.com/dmitrymomot/seopilot/pkg/cookie"
	"github.com/dmitrymomot/seopilot/pkg/edge"
	"github.com/dmitrymomot/seopilot/pkg/localauth"
	"github.com/dmitrymomot/seopilot/pkg/ratelimiter"
	"github.com/dmitrymomot/seopilot/pkg/supabase"
	"github.com/dmitrymomot/seopilot/pkg/token"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func localConfig() app.Config {
	return app.Config{
		Env:          "development",
		Name:         "seopilot",
		AuthProvider: app.ProviderLocal,
		Cookie:       cookie.Config{Secrets: []string{secret}},
		Edge:         edge.Config{JWTSecret: secret, DefaultCurrency: "usd"},
		Local:        localauth.Config{BcryptCost: 4},

		AuthRate:      ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Minute},
		FunctionsRate: ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute},
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestNew_Local(t *testing.T) {
	t.Parallel()

	a, err := app.New(localConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Registry.Close)

	code, body := get(t, a.Handler, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ALIVE", body)

	code, body = get(t, a.Handler, "/dashboard")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `id="auth-view"`)
	assert.Equal(t, 1, a.Registry.Len())

	code, body = get(t, a.Handler, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "seopilot_active_views 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_LocalTokensVerifyAtFunctions(t *testing.T) {
	t.Parallel()

	a, err := app.New(localConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Registry.Close)

	signer, err := token.NewSigner(secret)
	require.NoError(t, err)
	raw, _, err := signer.Sign("user-1", "ada@example.com", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/"+edge.FnCheckSubscription, nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscribed":false}`, rec.Body.String())
}

func TestNew_FunctionsRateLimit(t *testing.T) {
	t.Parallel()

	cfg := localConfig()
	cfg.ClientIPHeaders = []string{"X-Real-IP"}
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Registry.Close)

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/"+edge.FnCreateCheckoutSession, strings.NewReader(`{}`))
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, call("198.51.100.1"))
	assert.Equal(t, http.StatusBadRequest, call("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("198.51.100.1"))
	assert.Equal(t, http.StatusBadRequest, call("198.51.100.2"))
	assert.Equal(t, 2, a.Limits.Len())
}

func TestNew_CatalogFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
plans:
  - name: Solo
    price: "€9"
    price_id: price_solo
    payment_link: https://buy.stripe.com/test_solo
    monthly_quota: 1
`)), 0o600))

	cfg := localConfig()
	cfg.CatalogPath = path
	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Registry.Close)

	_, body := get(t, a.Handler, "/pricing")
	assert.Contains(t, body, `data-plan="Solo"`)
	assert.NotContains(t, body, `data-plan="Pro"`)

	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = app.New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		cfg := localConfig()
		cfg.AuthProvider = "firebase"
		_, err := app.New(cfg, nil)
		assert.ErrorIs(t, err, app.ErrUnknownProvider)
	})

	t.Run("supabase without settings", func(t *testing.T) {
		t.Parallel()
		cfg := localConfig()
		cfg.AuthProvider = app.ProviderSupabase
		_, err := app.New(cfg, nil)
		assert.ErrorIs(t, err, app.ErrSupabaseConfig)
	})

	t.Run("confirmation without secret", func(t *testing.T) {
		t.Parallel()
		cfg := localConfig()
		cfg.Local.RequireConfirmation = true
		_, err := app.New(cfg, nil)
		assert.ErrorIs(t, err, app.ErrConfirmSecret)
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		t.Parallel()
		cfg := localConfig()
		cfg.AuthRate.Capacity = 0
		_, err := app.New(cfg, nil)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})

	t.Run("short cookie secret", func(t *testing.T) {
		t.Parallel()
		cfg := localConfig()
		cfg.Cookie.Secrets = []string{"short"}
		_, err := app.New(cfg, nil)
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})
}

func TestNew_Supabase(t *testing.T) {
	t.Parallel()

	cfg := localConfig()
	cfg.AuthProvider = app.ProviderSupabase
	a, err := app.New(cfg, nil, app.WithSupabase(supabase.Config{
		URL:     "https://project.supabase.co",
		AnonKey: "anon-key",
	}))
	require.NoError(t, err)
	t.Cleanup(a.Registry.Close)

	code, _ := get(t, a.Handler, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}
