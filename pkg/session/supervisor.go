package session

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spothound/hamalert-bridge/pkg/format"
	"github.com/spothound/hamalert-bridge/pkg/logging"
	"github.com/spothound/hamalert-bridge/pkg/notify"
	"github.com/spothound/hamalert-bridge/pkg/observability"
	"github.com/spothound/hamalert-bridge/pkg/protocol"
	"github.com/spothound/hamalert-bridge/pkg/transport"
)

// Config holds the parameters of the session core.
type Config struct {
	// Username is sent at the login prompt. The service requires it upper
	// case; config normalization handles that before it reaches here.
	Username string
	// Password is sent at the password prompt.
	Password string

	// PromptDelay is the pause between seeing the command prompt and sending
	// the mode-switch command.
	PromptDelay time.Duration

	// InitialBackoff is the delay after the first consecutive failure.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling backoff.
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.PromptDelay == 0 {
		c.PromptDelay = time.Second
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 60 * time.Second
	}
	return c
}

// Supervisor owns the outer retry loop. It dials a transport, drives the
// handshake, consumes the line stream, and on any failure tears everything
// down and retries with doubling backoff. It runs until its context is
// cancelled; no session error ever escapes it.
type Supervisor struct {
	dialer  transport.Dialer
	cfg     Config
	sink    notify.Sink
	logger  logging.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	backoff time.Duration

	// sleep is the backoff wait, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	// now feeds the formatter's relative timestamp, injectable for tests.
	now func() time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMetrics attaches session metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// NewSupervisor creates a session supervisor.
func NewSupervisor(dialer transport.Dialer, cfg Config, sink notify.Sink, logger logging.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		dialer: dialer,
		cfg:    cfg.withDefaults(),
		sink:   sink,
		logger: logger,
		tracer: otel.Tracer("hamalert-bridge/session"),
		sleep:  sleepContext,
		now:    time.Now,
	}
	s.backoff = s.cfg.InitialBackoff
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the supervision loop until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Error("session terminated", logging.ErrorField(err))
		s.metrics.RecordReconnect()
		s.metrics.SetBackoffSeconds(s.backoff.Seconds())

		s.logger.Info("reconnecting after backoff", logging.Duration("delay", s.backoff))
		if serr := s.sleep(ctx, s.backoff); serr != nil {
			return serr
		}

		s.backoff *= 2
		if s.backoff > s.cfg.MaxBackoff {
			s.backoff = s.cfg.MaxBackoff
		}
	}
}

// runSession performs one full connect/handshake/read-loop cycle. Any
// returned error discards the whole session; the next attempt rebuilds it
// from the login step.
func (s *Supervisor) runSession(ctx context.Context) error {
	sctx, span := s.tracer.Start(ctx, "session.attempt")
	defer span.End()

	tr, err := s.dialer.Dial(sctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return err
	}
	defer func() { _ = tr.Close() }()

	// Close the transport when ctx is cancelled so blocked reads unwind
	// promptly instead of waiting out their deadline.
	stop := context.AfterFunc(sctx, func() { _ = tr.Close() })
	defer stop()

	s.metrics.SetConnected(true)
	defer s.metrics.SetConnected(false)

	span.SetAttributes(attribute.String("remote.addr", tr.RemoteAddr()))
	s.logger.Info("connected", logging.String("remote", tr.RemoteAddr()))

	hs := newHandshake(s.cfg, tr, s.logger)
	if err := hs.Run(sctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		return err
	}

	// Backoff resets only after a successful handshake, not merely after
	// the transport opened.
	s.backoff = s.cfg.InitialBackoff
	s.metrics.SetBackoffSeconds(s.backoff.Seconds())
	s.logger.Info("session ready")

	return s.readLoop(sctx, tr)
}

// readLoop consumes lines until the transport fails. Idle timeouts trigger a
// keepalive probe, not a reconnect.
func (s *Supervisor) readLoop(ctx context.Context, tr transport.Transport) error {
	for {
		line, err := tr.ReadLine(ctx)
		if errors.Is(err, transport.ErrIdleTimeout) {
			s.logger.Debug("idle timeout, sending keepalive")
			if kerr := tr.SendKeepalive(); kerr != nil {
				return kerr
			}
			s.metrics.RecordKeepalive()
			continue
		}
		if err != nil {
			return err
		}

		s.dispatch(ctx, line)
	}
}

// dispatch classifies one line and forwards the result. Per-line problems
// never abort the session: malformed records are dropped with a warning and
// non-structured lines go out verbatim.
func (s *Supervisor) dispatch(ctx context.Context, line string) {
	rec, err := protocol.ParseSpot(line)
	switch {
	case errors.Is(err, protocol.ErrNotStructured):
		s.logger.Debug("forwarding raw line", logging.String("line", line))
		s.metrics.RecordRawForwarded()
		s.deliver(ctx, line)

	case err != nil:
		s.logger.Warn("dropping record in unexpected format",
			logging.String("line", line),
			logging.ErrorField(err))
		s.metrics.RecordSpotDropped()

	default:
		s.logger.Info("spot received",
			logging.String("source", rec.Source),
			logging.String("callsign", rec.FullCallsign))
		s.metrics.RecordSpot(rec.Source)
		s.deliver(ctx, format.Spot(rec, s.now()))
	}
}

// deliver forwards text to the sink. Delivery failures are logged and
// dropped; they do not count toward backoff.
func (s *Supervisor) deliver(ctx context.Context, text string) {
	if err := s.sink.Send(ctx, text); err != nil {
		s.logger.Error("notification delivery failed", logging.ErrorField(err))
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
