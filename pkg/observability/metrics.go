// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the bridge.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spothound/hamalert-bridge/pkg/logging"
)

const namespace = "hamalert"

// Metrics holds the bridge's Prometheus collectors. All recording methods are
// safe to call on a nil receiver, so components can run unmetered in tests.
type Metrics struct {
	spotsTotal       *prometheus.CounterVec
	spotsDropped     prometheus.Counter
	rawForwarded     prometheus.Counter
	reconnects       prometheus.Counter
	keepalives       prometheus.Counter
	deliveries       *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
	heartbeats       *prometheus.CounterVec
	connectionState  prometheus.Gauge
	backoffSeconds   prometheus.Gauge
}

// NewMetrics creates the bridge metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		spotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spots_total",
				Help:      "Valid spot records received, by source",
			},
			[]string{"source"},
		),
		spotsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spots_dropped_total",
				Help:      "Structured records dropped for missing required keys",
			},
		),
		rawForwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "raw_lines_forwarded_total",
				Help:      "Non-structured lines forwarded verbatim",
			},
		),
		reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_reconnects_total",
				Help:      "Session failures that triggered a reconnect",
			},
		),
		keepalives: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "keepalives_sent_total",
				Help:      "Keepalive probes sent after idle read timeouts",
			},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Webhook delivery attempts, by status",
			},
			[]string{"status"},
		),
		deliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "webhook_delivery_seconds",
				Help:      "Webhook POST duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		heartbeats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeats_total",
				Help:      "Liveness pings, by status",
			},
			[]string{"status"},
		),
		connectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_connected",
				Help:      "1 while a session transport is open",
			},
		),
		backoffSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_backoff_seconds",
				Help:      "Current reconnect backoff delay",
			},
		),
	}

	reg.MustRegister(
		m.spotsTotal,
		m.spotsDropped,
		m.rawForwarded,
		m.reconnects,
		m.keepalives,
		m.deliveries,
		m.deliveryDuration,
		m.heartbeats,
		m.connectionState,
		m.backoffSeconds,
	)

	return m
}

// RecordSpot counts a valid spot record.
func (m *Metrics) RecordSpot(source string) {
	if m == nil {
		return
	}
	m.spotsTotal.WithLabelValues(source).Inc()
}

// RecordSpotDropped counts a structured record dropped by validation.
func (m *Metrics) RecordSpotDropped() {
	if m == nil {
		return
	}
	m.spotsDropped.Inc()
}

// RecordRawForwarded counts a non-structured line forwarded verbatim.
func (m *Metrics) RecordRawForwarded() {
	if m == nil {
		return
	}
	m.rawForwarded.Inc()
}

// RecordReconnect counts a session failure entering the backoff path.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// RecordKeepalive counts a keepalive probe.
func (m *Metrics) RecordKeepalive() {
	if m == nil {
		return
	}
	m.keepalives.Inc()
}

// RecordDelivery counts a webhook delivery attempt and its duration.
func (m *Metrics) RecordDelivery(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.deliveries.WithLabelValues(status).Inc()
	m.deliveryDuration.Observe(duration.Seconds())
}

// RecordHeartbeat counts a liveness ping outcome.
func (m *Metrics) RecordHeartbeat(ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.heartbeats.WithLabelValues(status).Inc()
}

// SetConnected records whether a session transport is currently open.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connectionState.Set(1)
	} else {
		m.connectionState.Set(0)
	}
}

// SetBackoffSeconds records the current reconnect delay.
func (m *Metrics) SetBackoffSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.backoffSeconds.Set(seconds)
}

// RunMetricsServer serves the registry on addr until ctx is cancelled.
func RunMetricsServer(ctx context.Context, addr string, reg *prometheus.Registry, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", logging.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
