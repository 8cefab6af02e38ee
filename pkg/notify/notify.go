// Package notify delivers finished message text to an outbound endpoint.
// Delivery is best effort: failures are reported to the caller for logging
// but are never retried.
package notify

import "context"

// Sink accepts a finished text message for delivery.
type Sink interface {
	Send(ctx context.Context, content string) error
}

// Nop is a no-op sink useful in tests.
type Nop struct{}

// Send implements Sink.
func (Nop) Send(_ context.Context, _ string) error { return nil }
