package session

import (
	"context"
	"errors"
	"strings"
	"time"

	bridgeerrors "github.com/spothound/hamalert-bridge/pkg/errors"
	"github.com/spothound/hamalert-bridge/pkg/logging"
	"github.com/spothound/hamalert-bridge/pkg/transport"
)

// Wire literals of the login and mode-negotiation sequence. Prompt matching
// is substring/suffix based so minor wording changes on the remote do not
// break the handshake.
const (
	loginPrompt    = "login:"
	passwordPrompt = "password:"

	greetingSuffix      = "this is hamalert"
	commandPromptSuffix = ">"

	jsonModeCommand = "set/json"
	jsonModeAck     = "Operation successful"
)

// handshake drives one login + mode-negotiation sequence over an open
// transport. A handshake is single-use.
type handshake struct {
	cfg    Config
	tr     transport.Transport
	logger logging.Logger
	state  State
}

func newHandshake(cfg Config, tr transport.Transport, logger logging.Logger) *handshake {
	return &handshake{
		cfg:    cfg,
		tr:     tr,
		logger: logger,
		state:  StateNotConnected,
	}
}

// Run performs the handshake, returning nil once the session is Ready.
//
// Idle read timeouts during the handshake are not failures: the read is
// simply retried in the same state, matching the remote's habit of pausing
// between banner lines. Only transport errors and context cancellation abort.
func (h *handshake) Run(ctx context.Context) error {
	if err := h.login(ctx); err != nil {
		return h.fail(err)
	}

	h.state = StateAwaitingGreeting
	for h.state != StateReady {
		line, err := h.tr.ReadLine(ctx)
		if errors.Is(err, transport.ErrIdleTimeout) {
			continue
		}
		if err != nil {
			return h.fail(err)
		}
		if err := h.handleLine(ctx, line); err != nil {
			return h.fail(err)
		}
	}

	return nil
}

// State returns the current handshake state.
func (h *handshake) State() State {
	return h.state
}

// login answers the two credential prompts.
func (h *handshake) login(ctx context.Context) error {
	if err := h.awaitPrompt(ctx, loginPrompt); err != nil {
		return err
	}
	if err := h.tr.WriteLine(h.cfg.Username); err != nil {
		return err
	}
	h.state = StateLoggingIn

	if err := h.awaitPrompt(ctx, passwordPrompt); err != nil {
		return err
	}
	return h.tr.WriteLine(h.cfg.Password)
}

// awaitPrompt reads until the prompt substring appears, retrying through idle
// timeouts.
func (h *handshake) awaitPrompt(ctx context.Context, prompt string) error {
	for {
		_, err := h.tr.ReadUntil(ctx, prompt)
		if errors.Is(err, transport.ErrIdleTimeout) {
			continue
		}
		return err
	}
}

// handleLine advances the state machine by one received line. Lines that do
// not match the expected pattern for the current state are ignored, including
// blank lines.
func (h *handshake) handleLine(ctx context.Context, line string) error {
	h.logger.Debug("handshake received", logging.String("line", line), logging.String("state", h.state.String()))

	switch h.state {
	case StateAwaitingGreeting:
		if strings.HasSuffix(strings.ToLower(line), greetingSuffix) {
			h.state = StateAwaitingJSONAck
		}

	case StateAwaitingJSONAck:
		if line == jsonModeAck {
			h.logger.Info("structured output mode confirmed")
			h.state = StateReady
			return nil
		}
		if strings.HasSuffix(line, commandPromptSuffix) {
			// Let the remote finish flushing its prompt before we write,
			// otherwise the command can race its own input buffer.
			select {
			case <-time.After(h.cfg.PromptDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			return h.tr.WriteLine(jsonModeCommand)
		}
	}

	return nil
}

// fail marks the handshake failed and wraps the cause.
func (h *handshake) fail(cause error) error {
	state := h.state
	h.state = StateFailed
	return bridgeerrors.HandshakeFailed(state.String(), cause)
}
