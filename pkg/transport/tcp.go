package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	bridgeerrors "github.com/spothound/hamalert-bridge/pkg/errors"
)

// Telnet IAC (interpret as command) followed by NOP. Written raw on the
// socket as a content-free keepalive.
var keepaliveSeq = []byte{0xFF, 0xF1}

// TCPTransport implements Transport over a net.Conn using per-read deadlines.
// Bytes read past a delimiter, or received before an idle timeout fired, are
// buffered and consumed by the next read call.
type TCPTransport struct {
	conn        net.Conn
	readTimeout time.Duration
	pending     []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewTCP wraps an established connection. readTimeout bounds each individual
// ReadLine/ReadUntil call.
func NewTCP(conn net.Conn, readTimeout time.Duration) *TCPTransport {
	return &TCPTransport{
		conn:        conn,
		readTimeout: readTimeout,
	}
}

// NewTCPDialer returns a Dialer that opens a plain TCP connection to addr.
func NewTCPDialer(addr string, dialTimeout, readTimeout time.Duration) Dialer {
	return DialerFunc(func(ctx context.Context) (Transport, error) {
		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, bridgeerrors.ConnectionFailed(addr, err)
		}
		return NewTCP(conn, readTimeout), nil
	})
}

// ReadLine implements Transport.
func (t *TCPTransport) ReadLine(ctx context.Context) (string, error) {
	raw, err := t.readDelim(ctx, func(buf []byte) int {
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			return i + 1
		}
		return -1
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ReadUntil implements Transport.
func (t *TCPTransport) ReadUntil(ctx context.Context, delim string) (string, error) {
	if delim == "" {
		return "", bridgeerrors.Internal("read until", errors.New("empty delimiter"))
	}
	return t.readDelim(ctx, func(buf []byte) int {
		if i := bytes.Index(buf, []byte(delim)); i >= 0 {
			return i + len(delim)
		}
		return -1
	})
}

// readDelim accumulates bytes until match reports the end of a complete unit.
// match returns the number of bytes consumed, or -1 if more input is needed.
// Unconsumed bytes are kept for the next call, including everything received
// before an idle timeout.
func (t *TCPTransport) readDelim(ctx context.Context, match func([]byte) int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := t.pending
	t.pending = nil

	deadline := time.Now().Add(t.readTimeout)
	ctxBounded := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxBounded = true
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return "", bridgeerrors.ConnectionLost(t.RemoteAddr(), err)
	}

	chunk := make([]byte, 512)
	for {
		if end := match(buf); end >= 0 {
			t.pending = append([]byte(nil), buf[end:]...)
			return string(buf[:end]), nil
		}

		n, err := t.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				t.pending = buf
				if cerr := ctx.Err(); cerr != nil {
					return "", cerr
				}
				if ctxBounded {
					// The deadline came from the context, not the idle
					// timeout; report it as such.
					return "", context.DeadlineExceeded
				}
				return "", ErrIdleTimeout
			}
			if errors.Is(err, io.EOF) {
				return "", bridgeerrors.ConnectionLost(t.RemoteAddr(), errors.New("remote closed the connection"))
			}
			return "", bridgeerrors.ConnectionLost(t.RemoteAddr(), err)
		}
	}
}

// WriteLine implements Transport.
func (t *TCPTransport) WriteLine(line string) error {
	return t.write(append([]byte(line), '\n'))
}

// SendKeepalive implements Transport.
func (t *TCPTransport) SendKeepalive() error {
	return t.write(keepaliveSeq)
}

func (t *TCPTransport) write(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.conn.SetWriteDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return bridgeerrors.ConnectionLost(t.RemoteAddr(), err)
	}
	if _, err := t.conn.Write(data); err != nil {
		return bridgeerrors.ConnectionLost(t.RemoteAddr(), err)
	}
	return nil
}

// RemoteAddr implements Transport.
func (t *TCPTransport) RemoteAddr() string {
	if addr := t.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// Close implements Transport.
func (t *TCPTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
