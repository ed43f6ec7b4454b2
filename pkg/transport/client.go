package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// DefaultConnectTimeout applies when the dial context has no deadline.
const DefaultConnectTimeout = 30 * time.Second

// NetTransport adapts a net.Conn to the Transport interface.
//
// With a zero poll interval every call blocks until the conn makes progress.
// With a positive interval each call waits at most that long and reports
// ErrWouldBlock on timeout. Either way a deadline set through
// SetReadDeadline or SetWriteDeadline ends the call with a hard error.
type NetTransport struct {
	conn         net.Conn
	pollInterval time.Duration
	closed       bool

	readDeadline  deadline
	writeDeadline deadline
}

// NewNetTransport wraps an already connected conn.
func NewNetTransport(conn net.Conn, pollInterval time.Duration) *NetTransport {
	return &NetTransport{conn: conn, pollInterval: pollInterval}
}

// Dial resolves and connects to address and wraps the connection.
func Dial(ctx context.Context, address string, pollInterval time.Duration) (*NetTransport, error) {
	// Apply default timeout if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return NewNetTransport(conn, pollInterval), nil
}

// Send writes p to the connection.
func (t *NetTransport) Send(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if t.pollInterval > 0 {
		_ = t.conn.SetWriteDeadline(t.writeDeadline.bound(time.Now().Add(t.pollInterval)))
	}
	n, err := t.conn.Write(p)
	return n, t.timeoutError("send", err, &t.writeDeadline)
}

// Receive reads from the connection.
func (t *NetTransport) Receive(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if t.pollInterval > 0 {
		_ = t.conn.SetReadDeadline(t.readDeadline.bound(time.Now().Add(t.pollInterval)))
	}
	n, err := t.conn.Read(p)
	return n, t.timeoutError("receive", err, &t.readDeadline)
}

// SetReadDeadline bounds Receive. Safe to call while Receive blocks.
func (t *NetTransport) SetReadDeadline(d time.Time) error {
	t.readDeadline.set(d)
	return t.conn.SetReadDeadline(d)
}

// SetWriteDeadline bounds Send. Safe to call while Send blocks.
func (t *NetTransport) SetWriteDeadline(d time.Time) error {
	t.writeDeadline.set(d)
	return t.conn.SetWriteDeadline(d)
}

// timeoutError turns a poll timeout into ErrWouldBlock and a passed caller
// deadline into a hard error.
func (t *NetTransport) timeoutError(op string, err error, d *deadline) error {
	if err == nil || !isTimeout(err) {
		return err
	}
	if t.pollInterval > 0 && !d.expired() {
		return ErrWouldBlock
	}
	return fmt.Errorf("%s: %w", op, os.ErrDeadlineExceeded)
}

// Close closes the connection. It is safe to call Close multiple times.
func (t *NetTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

// LocalAddr returns the local network address.
func (t *NetTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (t *NetTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout() && !errors.Is(err, io.EOF)
}
