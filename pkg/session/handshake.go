package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retrocoder/tlsfetch/pkg/cert"
	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// HandshakeStatus is the outcome of one handshake step.
type HandshakeStatus uint8

const (
	// HandshakeWantRead means the step needs more inbound bytes.
	HandshakeWantRead HandshakeStatus = iota
	// HandshakeWantWrite means the step needs to flush outbound bytes.
	HandshakeWantWrite
	// HandshakeEstablished means the handshake completed and passed policy.
	HandshakeEstablished
	// HandshakeFailed means the handshake cannot complete.
	HandshakeFailed
)

// String returns the status name.
func (s HandshakeStatus) String() string {
	switch s {
	case HandshakeWantRead:
		return "WANT_READ"
	case HandshakeWantWrite:
		return "WANT_WRITE"
	case HandshakeEstablished:
		return "ESTABLISHED"
	case HandshakeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Negotiated holds the parameters agreed during the handshake.
type Negotiated struct {
	Version            uint16
	CipherSuite        uint16
	NegotiatedProtocol string

	// VerifiedPeer reports whether the peer chain and hostname verified.
	VerifiedPeer bool

	PeerCertificates []*x509.Certificate
}

// HandshakeResult is the tagged outcome of HandshakeController.Step.
type HandshakeResult struct {
	Status HandshakeStatus

	// Params is set when Status is HandshakeEstablished.
	Params Negotiated

	// Err is a *Error when Status is HandshakeFailed.
	Err error
}

// Kind returns the failure kind, or KindNone unless the step failed.
func (r HandshakeResult) Kind() Kind {
	if r.Status != HandshakeFailed {
		return KindNone
	}
	return KindOf(r.Err)
}

func handshakeFailed(err error) HandshakeResult {
	return HandshakeResult{Status: HandshakeFailed, Err: err}
}

// HandshakeController drives a backend handshake and enforces the version
// floor and peer identity policy. It holds no per-session state and may be
// reused.
type HandshakeController struct {
	MinVersion uint16
	Hostname   string
	Trust      *cert.TrustStore
	AuthMode   AuthMode

	// Now overrides the certificate verification clock.
	Now func() time.Time

	// Logger receives optional-mode verification warnings.
	Logger *slog.Logger
}

// Validate checks the controller configuration.
func (h *HandshakeController) Validate() error {
	if !transport.ValidMinVersion(h.MinVersion) {
		return newError(KindConfigInvalid, "handshake",
			fmt.Errorf("%w: minimum version 0x%04x", transport.ErrUnsupportedVersion, h.MinVersion))
	}
	switch h.AuthMode {
	case AuthRequired, AuthOptional:
		if h.Trust.Len() == 0 {
			return newError(KindConfigInvalid, "handshake", cert.ErrEmptyTrustStore)
		}
		if h.Hostname == "" {
			return newError(KindConfigInvalid, "handshake", errors.New("hostname is required for peer verification"))
		}
	case AuthNone:
	default:
		return newError(KindConfigInvalid, "handshake", fmt.Errorf("unknown auth mode %d", h.AuthMode))
	}
	return nil
}

// Step runs one backend handshake step. WantRead and WantWrite are not
// failures; call Step again once the transport is ready. Step never waits.
func (h *HandshakeController) Step(ctx context.Context, b transport.Backend) HandshakeResult {
	if err := h.Validate(); err != nil {
		return handshakeFailed(err)
	}
	if b == nil {
		return handshakeFailed(newError(KindConfigInvalid, "handshake", errors.New("no backend")))
	}

	err := b.Handshake(ctx)
	switch {
	case errors.Is(err, transport.ErrWantRead):
		return HandshakeResult{Status: HandshakeWantRead}
	case errors.Is(err, transport.ErrWantWrite):
		return HandshakeResult{Status: HandshakeWantWrite}
	case err != nil:
		return handshakeFailed(newError(classify(err), "handshake", err))
	}

	params, err := h.check(b.ConnectionState())
	if err != nil {
		return handshakeFailed(err)
	}
	return HandshakeResult{Status: HandshakeEstablished, Params: params}
}

// VerifyConnection applies the required-mode policy inside a crypto/tls
// handshake, so a rejected peer receives a bad_certificate alert. Other
// modes are settled after the handshake by Step.
func (h *HandshakeController) VerifyConnection(state tls.ConnectionState) error {
	if h.AuthMode != AuthRequired {
		return nil
	}
	_, err := h.check(state)
	return err
}

// check enforces the version floor and the auth policy on a completed
// handshake.
func (h *HandshakeController) check(state tls.ConnectionState) (Negotiated, error) {
	if state.Version < h.MinVersion {
		return Negotiated{}, newError(KindProtocol, "handshake",
			fmt.Errorf("negotiated %s below minimum %s",
				transport.VersionName(state.Version), transport.VersionName(h.MinVersion)))
	}

	verified, err := h.verifyPeer(state)
	if err != nil {
		return Negotiated{}, err
	}

	return Negotiated{
		Version:            state.Version,
		CipherSuite:        state.CipherSuite,
		NegotiatedProtocol: state.NegotiatedProtocol,
		VerifiedPeer:       verified,
		PeerCertificates:   state.PeerCertificates,
	}, nil
}

func (h *HandshakeController) verifyPeer(state tls.ConnectionState) (bool, error) {
	if h.AuthMode == AuthNone {
		return false, nil
	}

	err := h.verifyChain(state)
	if err == nil {
		return true, nil
	}
	if h.AuthMode == AuthRequired {
		return false, newError(KindCertInvalid, "verify peer", err)
	}

	if h.Logger != nil {
		h.Logger.Warn("peer verification failed, continuing unverified",
			"hostname", h.Hostname,
			"error", err)
	}
	return false, nil
}

func (h *HandshakeController) verifyChain(state tls.ConnectionState) error {
	opts := cert.VerifyOptions{Hostname: h.Hostname}
	if h.Now != nil {
		opts.CurrentTime = h.Now()
	}

	chain, err := cert.VerifyPeerChain(h.Trust, state.PeerCertificates, opts)
	if err != nil {
		return err
	}
	if len(chain) > 1 {
		return cert.CheckStapledOCSP(state.OCSPResponse, chain[0], chain[1])
	}
	return nil
}
