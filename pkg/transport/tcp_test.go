package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// pipeTransport builds a TCPTransport over one end of an in-memory pipe and
// hands the other end to the test for scripting the remote side.
func pipeTransport(t *testing.T, readTimeout time.Duration) (*TCPTransport, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})
	return NewTCP(local, readTimeout), remote
}

func TestReadLineTrimsTerminator(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	go func() {
		_, _ = remote.Write([]byte("Operation successful\r\n"))
	}()

	line, err := tr.ReadLine(context.Background())
	if err != nil {
		t.Fatalf("ReadLine returned error: %v", err)
	}
	if line != "Operation successful" {
		t.Errorf("line = %q, want %q", line, "Operation successful")
	}
}

func TestReadLineSplitsBufferedLines(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	go func() {
		_, _ = remote.Write([]byte("one\ntwo\n"))
	}()

	for _, want := range []string{"one", "two"} {
		line, err := tr.ReadLine(context.Background())
		if err != nil {
			t.Fatalf("ReadLine returned error: %v", err)
		}
		if line != want {
			t.Errorf("line = %q, want %q", line, want)
		}
	}
}

func TestReadLineIdleTimeout(t *testing.T) {
	tr, _ := pipeTransport(t, 50*time.Millisecond)

	start := time.Now()
	line, err := tr.ReadLine(context.Background())
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("error = %v, want ErrIdleTimeout", err)
	}
	if line != "" {
		t.Errorf("line = %q, want empty on idle timeout", line)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("read returned after %v, before the idle timeout", elapsed)
	}
}

func TestReadLineResumesPartialAfterIdle(t *testing.T) {
	tr, remote := pipeTransport(t, 50*time.Millisecond)

	go func() {
		_, _ = remote.Write([]byte("par"))
	}()

	if _, err := tr.ReadLine(context.Background()); !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("expected idle timeout holding partial data, got %v", err)
	}

	go func() {
		_, _ = remote.Write([]byte("tial\n"))
	}()

	line, err := tr.ReadLine(context.Background())
	if err != nil {
		t.Fatalf("ReadLine returned error: %v", err)
	}
	if line != "partial" {
		t.Errorf("line = %q, want %q", line, "partial")
	}
}

func TestReadUntilMatchesPromptWithoutNewline(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	go func() {
		_, _ = remote.Write([]byte("login: "))
	}()

	got, err := tr.ReadUntil(context.Background(), "login:")
	if err != nil {
		t.Fatalf("ReadUntil returned error: %v", err)
	}
	if got != "login:" {
		t.Errorf("ReadUntil = %q, want %q", got, "login:")
	}
}

func TestReadLineConnectionClosed(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	go func() {
		_ = remote.Close()
	}()

	_, err := tr.ReadLine(context.Background())
	if err == nil {
		t.Fatal("expected error after remote close")
	}
	if errors.Is(err, ErrIdleTimeout) {
		t.Fatal("connection loss must not be reported as idle timeout")
	}
}

func TestReadLineContextCancelled(t *testing.T) {
	tr, _ := pipeTransport(t, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.ReadLine(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context deadline", err)
	}
}

func TestWriteLineAppendsNewline(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- tr.WriteLine("set/json")
	}()

	buf := make([]byte, 9)
	if _, err := io.ReadFull(remote, buf); err != nil {
		t.Fatalf("reading remote side: %v", err)
	}
	if string(buf) != "set/json\n" {
		t.Errorf("wrote %q, want %q", buf, "set/json\n")
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
}

func TestSendKeepaliveWritesControlSequence(t *testing.T) {
	tr, remote := pipeTransport(t, time.Second)

	done := make(chan error, 1)
	go func() {
		done <- tr.SendKeepalive()
	}()

	buf := make([]byte, 2)
	if _, err := io.ReadFull(remote, buf); err != nil {
		t.Fatalf("reading remote side: %v", err)
	}
	if buf[0] != 0xFF || buf[1] != 0xF1 {
		t.Errorf("keepalive bytes = %x, want fff1", buf)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendKeepalive returned error: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tr, _ := pipeTransport(t, time.Second)

	if err := tr.Close(); err != nil {
		t.Fatalf("first Close returned error: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestTCPDialerConnectionRefused(t *testing.T) {
	// Reserve a port and close the listener so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	dialer := NewTCPDialer(addr, time.Second, time.Second)
	if _, err := dialer.Dial(context.Background()); err == nil {
		t.Fatal("expected dial error for refused connection")
	}
}
