package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/retrocoder/tlsfetch/pkg/transport"
)

// ReadStatus is the outcome of one read attempt.
type ReadStatus uint8

const (
	// ReadBytes means N bytes were read. N may be zero when the transport
	// ended without close-notify.
	ReadBytes ReadStatus = iota
	// ReadWouldBlock means no data is available yet; read again later.
	ReadWouldBlock
	// ReadPeerClosed means the peer sent close-notify.
	ReadPeerClosed
	// ReadFailed means a fatal error; see Err.
	ReadFailed
)

// String returns the status name.
func (s ReadStatus) String() string {
	switch s {
	case ReadBytes:
		return "BYTES"
	case ReadWouldBlock:
		return "WOULD_BLOCK"
	case ReadPeerClosed:
		return "PEER_CLOSED"
	case ReadFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ReadOutcome is the result of Pump.ReadInto.
type ReadOutcome struct {
	Status ReadStatus
	N      int
	Err    error
}

// Reader performs single read attempts. Implemented by Pump and Session.
type Reader interface {
	ReadInto(sink []byte, maxLen int) ReadOutcome
}

// pumpHooks observe pump activity for logging and metrics.
type pumpHooks struct {
	onWrite func(n, requested int)
	onRead  func(n, requested int)
	onRetry func(op string)
}

// Pump moves application data over an established backend.
type Pump struct {
	backend transport.Backend
	retry   RetryPolicy
	hooks   pumpHooks

	// peerClosed latches a close-notify that arrived together with data.
	peerClosed bool
}

// NewPump creates a pump over b. A nil retry policy means Unbounded.
func NewPump(b transport.Backend, retry RetryPolicy) *Pump {
	if retry == nil {
		retry = Unbounded()
	}
	return &Pump{backend: b, retry: retry}
}

// WriteAll writes every byte of p, retrying on want-read, want-write and
// short writes. It returns nil only after all of p was accepted.
func (p *Pump) WriteAll(ctx context.Context, data []byte) error {
	written := 0
	attempt := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return newError(KindTransport, "write", err)
		}

		remaining := len(data) - written
		n, err := p.backend.Write(data[written:])
		if n < 0 || n > remaining {
			return newError(KindProtocol, "write", fmt.Errorf("backend reported %d bytes for %d", n, remaining))
		}
		written += n
		if n > 0 {
			attempt = 0
			if p.hooks.onWrite != nil {
				p.hooks.onWrite(n, remaining)
			}
		}

		switch {
		case err == nil && n > 0:
			continue
		case err == nil, errors.Is(err, transport.ErrWantRead), errors.Is(err, transport.ErrWantWrite):
			// Zero-length progress is retried like want-write.
		default:
			return newError(classify(err), "write", err)
		}

		if written == len(data) {
			break
		}
		attempt++
		if p.hooks.onRetry != nil {
			p.hooks.onRetry("write")
		}
		if err := p.retry.Wait(ctx, attempt); err != nil {
			return newError(KindTransport, "write", err)
		}
	}
	return nil
}

// ReadInto performs exactly one read of at most maxLen bytes into sink.
// It never waits: an empty transport yields ReadWouldBlock.
func (p *Pump) ReadInto(sink []byte, maxLen int) ReadOutcome {
	if p.peerClosed {
		return ReadOutcome{Status: ReadPeerClosed}
	}
	if maxLen > len(sink) {
		maxLen = len(sink)
	}
	if maxLen <= 0 {
		return ReadOutcome{Status: ReadBytes}
	}

	n, err := p.backend.Read(sink[:maxLen:maxLen])
	if n < 0 || n > maxLen {
		return ReadOutcome{Status: ReadFailed,
			Err: newError(KindProtocol, "read", fmt.Errorf("backend reported %d bytes for %d", n, maxLen))}
	}
	if n > 0 && p.hooks.onRead != nil {
		p.hooks.onRead(n, maxLen)
	}

	switch {
	case err == nil:
		return ReadOutcome{Status: ReadBytes, N: n}
	case errors.Is(err, transport.ErrWantRead), errors.Is(err, transport.ErrWantWrite):
		if n > 0 {
			return ReadOutcome{Status: ReadBytes, N: n}
		}
		return ReadOutcome{Status: ReadWouldBlock}
	case errors.Is(err, io.EOF):
		if n > 0 {
			p.peerClosed = true
			return ReadOutcome{Status: ReadBytes, N: n}
		}
		return ReadOutcome{Status: ReadPeerClosed}
	default:
		return ReadOutcome{Status: ReadFailed, N: n, Err: newError(classify(err), "read", err)}
	}
}

// Compile-time interface satisfaction check.
var _ Reader = (*Pump)(nil)
