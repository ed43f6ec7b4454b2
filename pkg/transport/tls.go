package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// TLS defaults.
const (
	// DefaultPort is the default HTTPS port.
	DefaultPort = 443

	// DefaultHandshakeTimeout applies when the handshake context has no deadline.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultWriteTimeout bounds how long a single record write may wait
	// for the transport.
	DefaultWriteTimeout = 30 * time.Second
)

// ErrUnsupportedVersion is returned for a minimum version outside the
// supported range.
var ErrUnsupportedVersion = errors.New("unsupported TLS version")

// ParseVersion converts "1.2" or "1.3" to the crypto/tls version constant.
func ParseVersion(s string) (uint16, error) {
	switch s {
	case "1.2", "TLS1.2", "tls1.2":
		return tls.VersionTLS12, nil
	case "1.3", "TLS1.3", "tls1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
}

// ValidMinVersion reports whether v can be used as a version floor.
func ValidMinVersion(v uint16) bool {
	return v == tls.VersionTLS12 || v == tls.VersionTLS13
}

// TLSConfig holds configuration for client TLS sessions.
type TLSConfig struct {
	// RootCAs is the pool of trusted CA certificates.
	RootCAs *x509.CertPool

	// ServerName is the expected server name. Sent as SNI.
	ServerName string

	// MinVersion is the lowest acceptable protocol version.
	MinVersion uint16

	// NextProtos lists ALPN protocols to offer.
	NextProtos []string

	// VerifyConnection is called after the peer's certificate chain is
	// received. Peer identity is checked here rather than by crypto/tls.
	VerifyConnection func(state tls.ConnectionState) error
}

// NewClientTLSConfig creates a crypto/tls client configuration.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("TLSConfig is required")
	}
	if !ValidMinVersion(cfg.MinVersion) {
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedVersion, cfg.MinVersion)
	}

	return &tls.Config{
		MinVersion: cfg.MinVersion,

		// CA pool for verifying server certificates
		RootCAs: cfg.RootCAs,

		// Server name for SNI
		ServerName: cfg.ServerName,

		NextProtos: cfg.NextProtos,

		// Curve preferences for key exchange
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		// Session tickets disabled (no resumption)
		SessionTicketsDisabled: true,

		// Chain and hostname verification happen in VerifyConnection so the
		// same policy applies to every backend.
		InsecureSkipVerify: true,
		VerifyConnection:   cfg.VerifyConnection,
	}, nil
}

// VersionName returns a human-readable protocol version.
func VersionName(v uint16) string {
	switch v {
	case 0:
		return "none"
	default:
		return tls.VersionName(v)
	}
}

// TLSBackend runs crypto/tls over a Transport.
type TLSBackend struct {
	conn *tls.Conn
	raw  *transportConn

	// WriteTimeout bounds a record write made outside BindContext.
	WriteTimeout time.Duration
}

// NewTLSBackend creates a client backend over tr. The transport stays owned
// by the caller; Free never closes it.
func NewTLSBackend(tr Transport, config *tls.Config) (*TLSBackend, error) {
	if tr == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if config == nil {
		return nil, fmt.Errorf("tls config is required")
	}
	raw := &transportConn{tr: tr, ctx: context.Background()}
	return &TLSBackend{
		conn:         tls.Client(raw, config),
		raw:          raw,
		WriteTimeout: DefaultWriteTimeout,
	}, nil
}

// SetWait sets the wait between transport calls that would block while the
// backend waits internally. Without one, PollWait is used.
func (b *TLSBackend) SetWait(wait WaitFunc) {
	if b.raw != nil {
		b.raw.retry = wait
	}
}

// BindContext ties transport I/O to ctx until release is called: internal
// waits end when ctx is done, and a Deadliner transport gets the ctx
// deadline and is interrupted on cancellation.
func (b *TLSBackend) BindContext(ctx context.Context) (release func()) {
	raw := b.raw
	if raw == nil {
		return func() {}
	}
	prev, prevBound := raw.ctx, raw.bound
	raw.ctx, raw.bound = ctx, true
	unbind := BindContext(ctx, raw.tr)
	return func() {
		unbind()
		raw.ctx, raw.bound = prev, prevBound
	}
}

// Handshake runs the crypto/tls handshake to completion. It never returns
// ErrWantRead or ErrWantWrite: crypto/tls cannot resume an interrupted
// handshake, so transport would-block is waited out under ctx.
func (b *TLSBackend) Handshake(ctx context.Context) error {
	if b.conn == nil {
		return ErrClosed
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHandshakeTimeout)
		defer cancel()
	}
	defer b.BindContext(ctx)()

	if err := b.conn.HandshakeContext(ctx); err != nil {
		return err
	}
	b.raw.surfaceReads = true
	return nil
}

// ConnectionState returns the negotiated parameters.
func (b *TLSBackend) ConnectionState() tls.ConnectionState {
	if b.conn == nil {
		return tls.ConnectionState{}
	}
	return b.conn.ConnectionState()
}

// Read reads application data. Returns ErrWantRead if the transport has
// nothing buffered, io.EOF after close-notify, and (0, nil) when the
// transport closed without close-notify.
func (b *TLSBackend) Read(p []byte) (int, error) {
	if b.conn == nil {
		return 0, ErrClosed
	}
	n, err := b.conn.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, ErrWouldBlock):
		return n, ErrWantRead
	case errors.Is(err, io.EOF):
		if b.raw.sawEOF {
			return n, nil
		}
		return n, io.EOF
	default:
		return n, err
	}
}

// Write writes application data as one or more records. Outside
// BindContext the write is bounded by WriteTimeout.
func (b *TLSBackend) Write(p []byte) (int, error) {
	if b.conn == nil {
		return 0, ErrClosed
	}
	if !b.raw.bound {
		ctx, cancel := context.WithTimeout(context.Background(), b.WriteTimeout)
		defer cancel()
		defer b.BindContext(ctx)()
	}
	return b.conn.Write(p)
}

// CloseNotify sends the close-notify alert without closing the transport.
// crypto/tls bounds the alert write with its own write deadline.
func (b *TLSBackend) CloseNotify() error {
	if b.conn == nil {
		return ErrClosed
	}
	return b.conn.CloseWrite()
}

// Free drops the TLS state. It is safe to call Free multiple times.
func (b *TLSBackend) Free() {
	b.conn = nil
	if b.raw != nil {
		b.raw.tr = nil
		b.raw = nil
	}
}

// transportConn presents a Transport as the net.Conn crypto/tls expects.
// Deadlines are forwarded to a Deadliner transport, and Close interrupts
// it, which is how crypto/tls cancels HandshakeContext.
type transportConn struct {
	tr Transport

	// ctx bounds internal waits; bound is set inside BindContext.
	ctx   context.Context
	bound bool
	retry WaitFunc

	// surfaceReads is set once the handshake completed; from then on an
	// empty receive is reported to the caller instead of waited out.
	surfaceReads bool
	sawEOF       bool

	interrupted atomic.Bool
}

// wouldBlockError is temporary so crypto/tls does not latch it on reads.
type wouldBlockError struct{}

func (wouldBlockError) Error() string   { return ErrWouldBlock.Error() }
func (wouldBlockError) Timeout() bool   { return true }
func (wouldBlockError) Temporary() bool { return true }
func (wouldBlockError) Unwrap() error   { return ErrWouldBlock }

func (c *transportConn) Read(p []byte) (int, error) {
	if c.tr == nil {
		return 0, net.ErrClosed
	}
	for attempt := 1; ; attempt++ {
		if c.interrupted.Load() {
			return 0, c.ioError("receive", net.ErrClosed)
		}
		n, err := c.tr.Receive(p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, io.EOF):
			c.sawEOF = true
			return n, io.EOF
		case errors.Is(err, ErrWouldBlock):
			if n > 0 {
				return n, nil
			}
			if c.surfaceReads {
				return 0, wouldBlockError{}
			}
			if werr := c.wait(attempt); werr != nil {
				return 0, c.ioError("receive", werr)
			}
		default:
			return n, c.ioError("receive", err)
		}
	}
}

func (c *transportConn) Write(p []byte) (int, error) {
	if c.tr == nil {
		return 0, net.ErrClosed
	}
	written, attempt := 0, 0
	for written < len(p) {
		if c.interrupted.Load() {
			return written, c.ioError("send", net.ErrClosed)
		}
		n, err := c.tr.Send(p[written:])
		written += n
		switch {
		case err == nil, errors.Is(err, ErrWouldBlock):
			if n > 0 {
				attempt = 0
				continue
			}
			attempt++
			if werr := c.wait(attempt); werr != nil {
				return written, c.ioError("send", werr)
			}
		default:
			return written, c.ioError("send", err)
		}
	}
	return written, nil
}

func (c *transportConn) wait(attempt int) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	if c.retry == nil {
		return PollWait(c.ctx, attempt)
	}
	return c.retry(c.ctx, attempt)
}

// ioError wraps a hard failure, naming the context error when the bound
// context ended, so errors.Is matches context.DeadlineExceeded too.
func (c *transportConn) ioError(op string, err error) error {
	if cerr := c.ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		err = fmt.Errorf("%w: %w", cerr, err)
	}
	return &IOError{Op: op, Err: err}
}

// Close interrupts a blocked transport call. The session still owns and
// closes the transport.
func (c *transportConn) Close() error {
	c.interrupted.Store(true)
	if d, ok := c.tr.(Deadliner); ok {
		setDeadlines(d, interruptDeadline)
	}
	return nil
}

func (c *transportConn) LocalAddr() net.Addr {
	if a, ok := c.tr.(interface{ LocalAddr() net.Addr }); ok {
		return a.LocalAddr()
	}
	return transportAddr{}
}

func (c *transportConn) RemoteAddr() net.Addr {
	if a, ok := c.tr.(interface{ RemoteAddr() net.Addr }); ok {
		return a.RemoteAddr()
	}
	return transportAddr{}
}

func (c *transportConn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

func (c *transportConn) SetReadDeadline(t time.Time) error {
	if d, ok := c.tr.(Deadliner); ok {
		return d.SetReadDeadline(t)
	}
	return nil
}

func (c *transportConn) SetWriteDeadline(t time.Time) error {
	if d, ok := c.tr.(Deadliner); ok {
		return d.SetWriteDeadline(t)
	}
	return nil
}

type transportAddr struct{}

func (transportAddr) Network() string { return "transport" }
func (transportAddr) String() string  { return "transport" }
