package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seopilot/internal/metrics"
	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/edge"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	var authHook authstate.ActionHook = c.AuthAction
	authHook(authstate.ActionSignIn, nil, 10*time.Millisecond)
	authHook(authstate.ActionSignIn, errors.New("Invalid login credentials"), time.Millisecond)
	authHook(authstate.ActionSignOut, nil, time.Millisecond)

	c.ProbeResult(nil)
	c.ProbeResult(errors.New("down"))
	c.ProbeResult(errors.New("down"))

	c.CheckoutRedirect("Pro")

	var fnHook edge.ResponseHook = c.FunctionResponse
	fnHook(edge.FnCreateCheckoutSession, http.StatusOK, time.Millisecond)
	fnHook(edge.FnCreateCheckoutSession, http.StatusBadRequest, time.Millisecond)

	c.SetActiveViews(3)

	count, err := testutil.GatherAndCount(reg, "seopilot_auth_actions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, 2.0, counterValue(t, reg, "seopilot_subscription_probes_total", "error"))
	assert.Equal(t, 1.0, counterValue(t, reg, "seopilot_subscription_probes_total", "ok"))
	assert.Equal(t, 3.0, gaugeValue(t, reg, "seopilot_active_views"))

	count, err = testutil.GatherAndCount(reg, "seopilot_function_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "seopilot_checkout_redirects_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	c.CheckoutRedirect("Basic")

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `seopilot_checkout_redirects_total{plan="Basic"} 1`)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("series %s{%s} not found", name, label)
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
