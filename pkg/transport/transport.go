// Package transport provides the line-oriented transport used for the
// alerting session. A Transport wraps a bidirectional byte stream and exposes
// reads delimited by newline or by an arbitrary prompt substring, with a fixed
// idle timeout per read. An idle timeout is reported as ErrIdleTimeout and is
// distinct from both an empty line and a hard transport error.
package transport

import (
	"context"
	"errors"
)

// ErrIdleTimeout is returned by ReadLine and ReadUntil when no complete line
// (or delimiter) arrives within the read timeout. It is not a connection
// failure: any bytes received so far are retained and the read may simply be
// retried.
var ErrIdleTimeout = errors.New("idle read timeout")

// Transport is a line-oriented bidirectional byte stream.
type Transport interface {
	// ReadLine reads up to and including the next newline and returns the
	// line with surrounding whitespace and the terminator trimmed. Returns
	// ErrIdleTimeout if no terminator arrives within the read timeout.
	ReadLine(ctx context.Context) (string, error)

	// ReadUntil reads until the given delimiter substring has been seen and
	// returns everything read including the delimiter. Used for prompts that
	// are not newline-terminated. Returns ErrIdleTimeout on idle.
	ReadUntil(ctx context.Context, delim string) (string, error)

	// WriteLine writes the given text followed by a newline.
	WriteLine(line string) error

	// SendKeepalive writes a protocol-level no-op directly on the stream.
	SendKeepalive() error

	// RemoteAddr returns the remote endpoint for logging.
	RemoteAddr() string

	// Close tears down the underlying stream. Safe to call more than once.
	Close() error
}

// Dialer opens a fresh Transport. The session supervisor dials a new
// transport for every connection attempt; transports are never reused.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Transport, error) {
	return f(ctx)
}
