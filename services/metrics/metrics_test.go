package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.CheckIn("manual")
	c.CheckIn("manual")
	c.CheckIn("biometric")
	c.CheckInRejected("LOW_CONFIDENCE")
	c.CheckInUndone()
	c.DayPublished()
	c.TripStarted()
	c.TripClosed(0.5, 42)
	c.TripClosed(0.25, 8)
	c.AuditRecorded("trip_closed")
	c.AuditFailed()
	c.NATSSetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CheckIns.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CheckIns.WithLabelValues("biometric")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CheckInRejects.WithLabelValues("LOW_CONFIDENCE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CheckInsUndone))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DaysPublished))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.TripsClosed))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.KmDriven))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.AuditEvents.WithLabelValues("trip_closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))

	c.NATSSetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest(http.MethodGet, "/api/v1/trips/:id", http.StatusOK, 15*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(c.RequestDurations))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `unibus_http_request_duration_seconds_count{method="GET",route="/api/v1/trips/:id",status="200"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
