// Package transport provides the byte-stream boundary under a secure session
// and the crypto/tls backend that runs over it.
//
// The transport layer handles:
//   - Non-blocking send/receive with an explicit would-block signal
//   - Dialing a TCP connection and wrapping it as a Transport
//   - Client TLS configuration with a minimum-version floor
//   - A crypto/tls backend exposing handshake, record I/O and close-notify
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Application request/reply    │
//	├────────────────────────────────┤
//	│   TLS 1.2 / 1.3 (TLSBackend)   │
//	├────────────────────────────────┤
//	│   Transport (send/receive)     │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Would-block signals
//
// A Transport reports ErrWouldBlock when it cannot make progress right now.
// The backend turns this into ErrWantRead or ErrWantWrite for the session
// layer. Neither is an error condition; callers retry after the transport is
// ready.
//
// crypto/tls keeps handshake and write failures sticky, so TLSBackend waits
// out would-block during the handshake and while writing a record. Those
// waits go through the WaitFunc set with SetWait. Only application reads
// surface ErrWantRead.
//
// # Deadlines
//
// NetTransport implements Deadliner. BindContext maps a context deadline onto
// the transport and interrupts a blocked call when the context is cancelled,
// so even a blocking transport (zero poll interval) cannot outlive the
// context of the operation using it.
package transport
