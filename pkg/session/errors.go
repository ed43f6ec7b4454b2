package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// Failure kinds.
var (
	ErrConfigInvalid = errors.New("invalid configuration")
	ErrCertInvalid   = errors.New("invalid peer certificate")
	ErrProtocol      = errors.New("protocol error")
	ErrTransport     = errors.New("transport error")
)

// Session state errors.
var (
	ErrNotEstablished = errors.New("session not established")
	ErrSessionClosed  = errors.New("session closed")
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// Kind classifies a session failure.
type Kind uint8

const (
	KindNone Kind = iota
	KindConfigInvalid
	KindCertInvalid
	KindProtocol
	KindTransport
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "CONFIG_INVALID"
	case KindCertInvalid:
		return "CERT_INVALID"
	case KindProtocol:
		return "PROTOCOL"
	case KindTransport:
		return "TRANSPORT"
	default:
		return "NONE"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfigInvalid:
		return ErrConfigInvalid
	case KindCertInvalid:
		return ErrCertInvalid
	case KindProtocol:
		return ErrProtocol
	default:
		return ErrTransport
	}
}

// Error is a classified session failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the kind of a session error, or KindNone.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNone
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify maps a backend or transport error onto a failure kind.
func classify(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	var (
		verifyErr    *tls.CertificateVerificationError
		unknownAuth  x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidCert  x509.CertificateInvalidError
		ioErr        *transport.IOError
		netErr       net.Error
		opErr        *net.OpError
		recordHdrErr tls.RecordHeaderError
		alertErr     tls.AlertError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert),
		errors.Is(err, cert.ErrInvalidChain),
		errors.Is(err, cert.ErrHostnameMismatch),
		errors.Is(err, cert.ErrNoPeerCert),
		errors.Is(err, cert.ErrCertRevoked):
		return KindCertInvalid
	case errors.As(err, &recordHdrErr), errors.As(err, &alertErr):
		return KindProtocol
	case errors.As(err, &opErr) && (opErr.Op == "remote error" || opErr.Op == "local error"):
		// crypto/tls reports sent and received alerts this way.
		return KindProtocol
	case errors.As(err, &ioErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, transport.ErrClosed),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		return KindTransport
	default:
		return KindProtocol
	}
}
