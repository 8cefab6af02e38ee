// Package heartbeat reports process liveness to an external monitoring
// endpoint. The reporter runs independently of the session supervisor and
// never shares failures with it: a missed ping is logged and forgotten.
package heartbeat

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/spothound/hamalert-bridge/pkg/logging"
	"github.com/spothound/hamalert-bridge/pkg/observability"
)

const pingTimeout = 10 * time.Second

// Reporter issues a periodic HTTP GET to the configured URL.
type Reporter struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   logging.Logger
	metrics  *observability.Metrics
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Reporter) { r.client = client }
}

// WithMetrics attaches heartbeat metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Reporter) { r.metrics = m }
}

// NewReporter creates a liveness reporter. An empty url disables reporting.
func NewReporter(url string, interval time.Duration, logger logging.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		url:      url,
		interval: interval,
		client: &http.Client{
			Timeout: pingTimeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run pings the endpoint immediately and then every interval until ctx is
// cancelled. Returns nil right away when reporting is disabled.
func (r *Reporter) Run(ctx context.Context) error {
	if r.url == "" {
		r.logger.Info("liveness reporting disabled")
		return nil
	}

	r.logger.Info("liveness reporting started",
		logging.String("url", r.url),
		logging.Duration("interval", r.interval))

	r.ping(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.ping(ctx)
		}
	}
}

// ping performs one liveness GET. Outcomes are logged, never escalated.
func (r *Reporter) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		r.logger.Warn("liveness ping setup failed", logging.ErrorField(err))
		r.metrics.RecordHeartbeat(false)
		return
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("liveness ping failed", logging.ErrorField(err))
		r.metrics.RecordHeartbeat(false)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logger.Warn("liveness ping rejected", logging.Int("status", resp.StatusCode))
		r.metrics.RecordHeartbeat(false)
		return
	}

	r.logger.Debug("liveness ping ok")
	r.metrics.RecordHeartbeat(true)
}
