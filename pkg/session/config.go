package session

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/retrocoder/tlsfetch/pkg/log"
	"github.com/retrocoder/tlsfetch/pkg/metrics"
)

// Defaults.
const (
	// DefaultResponseCapacity is the response buffer size.
	DefaultResponseCapacity = 4096

	// DefaultReadChunkSize is the largest single read, one Ethernet MTU.
	DefaultReadChunkSize = 1500

	// DefaultMinVersion is the protocol version floor.
	DefaultMinVersion = tls.VersionTLS12
)

// AuthMode controls how peer identity verification failures are handled.
type AuthMode uint8

const (
	// AuthRequired aborts the handshake if the peer presents no certificate
	// or the certificate does not verify.
	AuthRequired AuthMode = iota

	// AuthOptional verifies the peer when possible but continues on failure,
	// reporting the peer as unverified.
	AuthOptional

	// AuthNone skips peer verification.
	AuthNone
)

// String returns the auth mode name.
func (m AuthMode) String() string {
	switch m {
	case AuthRequired:
		return "required"
	case AuthOptional:
		return "optional"
	case AuthNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseAuthMode parses "required", "optional" or "none".
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(s) {
	case "", "required":
		return AuthRequired, nil
	case "optional":
		return AuthOptional, nil
	case "none":
		return AuthNone, nil
	default:
		return 0, fmt.Errorf("%w: unknown auth mode %q", ErrConfigInvalid, s)
	}
}

// Config configures a Session.
type Config struct {
	// Hostname is the identity the peer certificate must match. Also sent as SNI.
	Hostname string

	// MinVersion is the protocol version floor (tls.VersionTLS12 or tls.VersionTLS13).
	MinVersion uint16

	// AuthMode controls peer verification.
	AuthMode AuthMode

	// ResponseCapacity is the response buffer size (default: 4096).
	ResponseCapacity int

	// ReadChunkSize is the largest single read (default: 1500).
	ReadChunkSize int

	// NextProtos lists ALPN protocols to offer.
	NextProtos []string

	// Retry is consulted between retry signals (default: Unbounded).
	Retry RetryPolicy

	// RemoteAddr is recorded in protocol events.
	RemoteAddr string

	// Logger receives operational logs (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger receives protocol events (default: log.NoopLogger).
	ProtocolLogger log.Logger

	// Metrics records session metrics. Nil disables metrics.
	Metrics *metrics.Recorder
}

// DefaultConfig returns a configuration for hostname with defaults applied.
func DefaultConfig(hostname string) Config {
	return Config{
		Hostname:         hostname,
		MinVersion:       DefaultMinVersion,
		AuthMode:         AuthRequired,
		ResponseCapacity: DefaultResponseCapacity,
		ReadChunkSize:    DefaultReadChunkSize,
		Retry:            Unbounded(),
	}
}

func (c Config) withDefaults() Config {
	if c.MinVersion == 0 {
		c.MinVersion = DefaultMinVersion
	}
	if c.ResponseCapacity == 0 {
		c.ResponseCapacity = DefaultResponseCapacity
	}
	if c.ReadChunkSize == 0 {
		c.ReadChunkSize = DefaultReadChunkSize
	}
	if c.Retry == nil {
		c.Retry = Unbounded()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	return c
}

func (c Config) validate() error {
	if c.ResponseCapacity < 0 {
		return newError(KindConfigInvalid, "config", fmt.Errorf("negative response capacity %d", c.ResponseCapacity))
	}
	if c.ReadChunkSize < 0 {
		return newError(KindConfigInvalid, "config", fmt.Errorf("negative read chunk size %d", c.ReadChunkSize))
	}
	return nil
}
