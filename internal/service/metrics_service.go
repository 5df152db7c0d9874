package service

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Side-effect outcome labels.
const (
	SideEffectSucceeded = "succeeded"
	SideEffectFailed    = "failed"
	SideEffectSkipped   = "skipped"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checkIns        *prometheus.CounterVec
	sideEffects     *prometheus.CounterVec
	mirrorRows      prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	checkIns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Recorded check-ins, labelled by whether the student was already checked in that day",
	}, []string{"duplicate"})

	sideEffects := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effects_total",
		Help: "Post check-in side effects by kind and outcome",
	}, []string{"kind", "status"})

	mirrorRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mirror_rows",
		Help: "Data rows written by the last spreadsheet resync",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, checkIns, sideEffects, mirrorRows, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checkIns:        checkIns,
		sideEffects:     sideEffects,
		mirrorRows:      mirrorRows,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCheckIn counts a persisted check-in.
func (m *MetricsService) RecordCheckIn(duplicate bool) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(strconv.FormatBool(duplicate)).Inc()
}

// RecordSideEffect counts a side-effect outcome.
func (m *MetricsService) RecordSideEffect(kind, status string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(kind, status).Inc()
}

// SetMirrorRows records the row count of the latest resync.
func (m *MetricsService) SetMirrorRows(n int) {
	if m == nil {
		return
	}
	m.mirrorRows.Set(float64(n))
}
