// Package metricsvc exposes operational counters to Prometheus.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campoalegre/unibus/core/attendance"
	"github.com/campoalegre/unibus/core/audit"
	"github.com/campoalegre/unibus/core/operation"
)

const namespace = "unibus"

type Collector struct {
	reg *prometheus.Registry

	CheckIns         *prometheus.CounterVec // method label: manual|biometric
	CheckInRejects   *prometheus.CounterVec // reason label
	CheckInsUndone   prometheus.Counter
	TripsStarted     prometheus.Counter
	TripsClosed      prometheus.Counter
	TripOccupancy    prometheus.Histogram
	KmDriven         prometheus.Counter
	DaysPublished    prometheus.Counter
	AuditEvents      *prometheus.CounterVec // action label
	AuditFailures    prometheus.Counter
	NATSPublished    prometheus.Counter
	NATSPublishErrs  prometheus.Counter
	NATSConnected    prometheus.Gauge
	RequestDurations *prometheus.HistogramVec // method, route, status labels
}

var (
	_ audit.Metrics      = (*Collector)(nil)
	_ operation.Metrics  = (*Collector)(nil)
	_ attendance.Metrics = (*Collector)(nil)
)

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_total",
			Help:      "Total successful check-ins.",
		}, []string{"method"}),
		CheckInRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkin_rejections_total",
			Help:      "Total rejected biometric check-ins.",
		}, []string{"reason"}),
		CheckInsUndone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkins_undone_total",
			Help:      "Total check-ins undone.",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_started_total",
			Help:      "Total trips started.",
		}),
		TripsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_closed_total",
			Help:      "Total trips closed.",
		}),
		TripOccupancy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trip_occupancy_ratio",
			Help:      "Occupancy rate of closed trips.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 12),
		}),
		KmDriven: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "km_driven_total",
			Help:      "Total km driven by closed trips.",
		}),
		DaysPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_days_published_total",
			Help:      "Total operation days published.",
		}),
		AuditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Total audit events stored.",
		}, []string{"action"}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Total audit events that could not be stored.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_published_total",
			Help:      "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nats_publish_errors_total",
			Help:      "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nats_connected",
			Help:      "1 if NATS connection is established, 0 otherwise.",
		}),
		RequestDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"method", "route", "status"}),
	}

	// Register
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.CheckIns, c.CheckInRejects, c.CheckInsUndone,
		c.TripsStarted, c.TripsClosed, c.TripOccupancy, c.KmDriven, c.DaysPublished,
		c.AuditEvents, c.AuditFailures,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.RequestDurations,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// attendance

func (c *Collector) CheckIn(method string)         { c.CheckIns.WithLabelValues(method).Inc() }
func (c *Collector) CheckInRejected(reason string) { c.CheckInRejects.WithLabelValues(reason).Inc() }
func (c *Collector) CheckInUndone()                { c.CheckInsUndone.Inc() }

// operation

func (c *Collector) DayPublished() { c.DaysPublished.Inc() }
func (c *Collector) TripStarted()  { c.TripsStarted.Inc() }

func (c *Collector) TripClosed(occupancy float64, kmDriven int) {
	c.TripsClosed.Inc()
	c.TripOccupancy.Observe(occupancy)
	c.KmDriven.Add(float64(kmDriven))
}

// audit

func (c *Collector) AuditRecorded(action string) { c.AuditEvents.WithLabelValues(action).Inc() }
func (c *Collector) AuditFailed()                { c.AuditFailures.Inc() }

// broker

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// http

func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
