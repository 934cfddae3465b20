package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEvent(t *testing.T) {
	r := New()
	r.ObserveEvent("pitch_liked", "accepted")
	r.ObserveEvent("pitch_liked", "accepted")
	r.ObserveEvent("pitch_liked", "duplicate")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Events.WithLabelValues("pitch_liked", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Events.WithLabelValues("pitch_liked", "duplicate")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveEvent("pitch_liked", "accepted")
		r.ObserveOracle("price", "ok")
		r.ObserveFeed(time.Millisecond)
		r.ObserveNotification("delivered")
		r.ObserveRequest("GET", "/feed", 200, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.ObserveOracle("price", "unavailable")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pitchfeed_oracle_requests_total{op="price",outcome="unavailable"} 1`)
}
