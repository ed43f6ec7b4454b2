// Package session implements the secure session engine: one outbound
// encrypted session carrying a single request/response exchange.
//
// # Lifecycle
//
//	Init → TCPConnected → Handshaking → Established → Closing → Closed
//	                 \________________\______________\________→ Failed
//
// A Session is created over an already connected transport.Transport.
// Handshake drives the HandshakeController until the session is established,
// WriteAll sends the request, Accumulate collects the response into a
// fixed-capacity ResponseBuffer, and Close sends close-notify and tears the
// session down. Exchange runs all of these in order.
//
// # Retry signals
//
// Want-read, want-write and would-block are retry signals, not errors. Step
// and ReadInto return them to the caller without waiting. Handshake, WriteAll
// and Accumulate consult the configured RetryPolicy between attempts. The
// crypto/tls backend cannot resume a handshake or a record write, so it waits
// out would-block itself; New hands it the same policy for those waits.
//
// # Deadlines
//
// Handshake, WriteAll and Accumulate bind their context to the transport for
// the duration of the call. The context deadline bounds blocking transport
// I/O and cancelling the context interrupts it, whatever the poll interval.
// Close sends close-notify under the backend's own short write deadline.
//
// # Errors
//
// Failures carry one of four kinds, matched with errors.Is:
//   - ErrConfigInvalid: bad minimum version, empty trust store, missing hostname
//   - ErrCertInvalid: untrusted chain, hostname mismatch, missing or revoked certificate
//   - ErrProtocol: malformed or incompatible handshake or record data
//   - ErrTransport: hard I/O error, cancelled context, or exhausted retries
//
// Any failure moves the session to Failed and runs the same teardown as Close.
// Teardown runs exactly once; later Close calls are no-ops.
//
// A Session is not safe for concurrent use.
package session
