package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/menu/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/menu/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/menu/{id}", "404")))
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.CartOperation("add")
	m.CartOperation("add")
	m.Checkout(true)
	m.Checkout(false)
	m.Login(true)
	m.OrderStatusChanged("preparing")
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cartOperations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("failure")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "cafebloom_orders_status_changes_total"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CartOperation("add")
	m.Checkout(true)
	m.Login(false)
	m.OrderStatusChanged("completed")
	m.SetActiveSessions(1)
}
