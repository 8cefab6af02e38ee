package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bridgeerrors "github.com/spothound/hamalert-bridge/pkg/errors"
	"github.com/spothound/hamalert-bridge/pkg/logging"
	"github.com/spothound/hamalert-bridge/pkg/observability"
)

// webhookPayload is the JSON body posted to the webhook.
type webhookPayload struct {
	Content string `json:"content"`
}

// DiscordWebhook posts messages to a Discord-compatible webhook URL. Each
// call opens its own connection; there is no pooling and no retry.
type DiscordWebhook struct {
	url     string
	client  *http.Client
	logger  logging.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option configures a DiscordWebhook.
type Option func(*DiscordWebhook)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *DiscordWebhook) { d.client = client }
}

// WithMetrics attaches delivery metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *DiscordWebhook) { d.metrics = m }
}

// NewDiscordWebhook creates a webhook sink for the given URL.
func NewDiscordWebhook(url string, logger logging.Logger, opts ...Option) *DiscordWebhook {
	d := &DiscordWebhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
		logger: logger,
		tracer: otel.Tracer("hamalert-bridge/notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send implements Sink. Success is HTTP 204; any other status is a delivery
// failure surfaced as an error, which the caller logs and drops.
func (d *DiscordWebhook) Send(ctx context.Context, content string) error {
	deliveryID := uuid.NewString()

	ctx, span := d.tracer.Start(ctx, "webhook.deliver",
		trace.WithAttributes(attribute.String("delivery.id", deliveryID)))
	defer span.End()

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return bridgeerrors.Internal("encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return bridgeerrors.Internal("build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		d.metrics.RecordDelivery(false, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return bridgeerrors.DeliveryFailed(d.url, 0, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusNoContent {
		d.metrics.RecordDelivery(false, elapsed)
		span.SetStatus(codes.Error, "unexpected status")
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		return bridgeerrors.DeliveryFailed(d.url, resp.StatusCode, nil)
	}

	d.metrics.RecordDelivery(true, elapsed)
	d.logger.Debug("webhook delivered",
		logging.String("delivery_id", deliveryID),
		logging.Duration("elapsed", elapsed))
	return nil
}
