package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

// Transport signals. ErrWouldBlock, ErrWantRead and ErrWantWrite are retry
// signals, not failures.
var (
	ErrWouldBlock = errors.New("transport would block")
	ErrClosed     = errors.New("transport closed")
	ErrWantRead   = errors.New("want read")
	ErrWantWrite  = errors.New("want write")
)

// Transport is a connected byte-stream duplex channel.
// Implemented by NetTransport.
type Transport interface {
	// Send writes p and returns the number of bytes accepted.
	// Returns ErrWouldBlock if nothing could be written right now.
	Send(p []byte) (int, error)

	// Receive reads up to len(p) bytes. Returns io.EOF on graceful remote
	// close and ErrWouldBlock if no data is available right now.
	Receive(p []byte) (int, error)

	// Close releases the channel.
	Close() error
}

// Deadliner is implemented by transports whose blocking calls can be
// bounded. A call that passes the deadline fails with a hard error wrapping
// os.ErrDeadlineExceeded, never ErrWouldBlock. The setters may be called
// from another goroutine to interrupt a call in progress. A zero time clears
// the deadline.
type Deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// WaitFunc is called between transport calls that made no progress. attempt
// counts such calls since the last progress, starting at 1. A non-nil error
// aborts the operation.
type WaitFunc func(ctx context.Context, attempt int) error

// ContextBinder is implemented by backends whose transport I/O can be tied
// to a context: the context deadline bounds blocking calls and cancelling it
// interrupts them. release undoes the binding.
type ContextBinder interface {
	BindContext(ctx context.Context) (release func())
}

// WaitSetter is implemented by backends that wait internally on would-block
// and let the caller supply the wait.
type WaitSetter interface {
	SetWait(wait WaitFunc)
}

// Backend is the cryptographic context driven by a secure session.
// Implemented by TLSBackend.
type Backend interface {
	// Handshake performs one handshake step. Returns nil once the handshake
	// is complete, ErrWantRead/ErrWantWrite if it must be called again.
	Handshake(ctx context.Context) error

	// ConnectionState returns the negotiated parameters.
	ConnectionState() tls.ConnectionState

	// Read reads decrypted application data. Returns io.EOF after the peer
	// sent close-notify and (0, nil) when the transport ended without one.
	Read(p []byte) (int, error)

	// Write encrypts and sends application data.
	Write(p []byte) (int, error)

	// CloseNotify sends the close-notify alert.
	CloseNotify() error

	// Free releases cryptographic state. Safe to call more than once.
	Free()
}

// IOError is a hard transport failure, distinct from would-block.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Compile-time interface satisfaction checks.
var (
	_ Transport     = (*NetTransport)(nil)
	_ Deadliner     = (*NetTransport)(nil)
	_ Backend       = (*TLSBackend)(nil)
	_ ContextBinder = (*TLSBackend)(nil)
	_ WaitSetter    = (*TLSBackend)(nil)
)
