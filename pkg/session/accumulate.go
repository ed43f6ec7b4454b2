package session

import (
	"context"
)

// AccumulateStatus is the outcome of an accumulation pass.
type AccumulateStatus uint8

const (
	// AccumulateComplete means the peer finished before capacity was exceeded.
	AccumulateComplete AccumulateStatus = iota
	// AccumulateTruncated means the peer had more data than fit.
	AccumulateTruncated
	// AccumulateFailed means a fatal error stopped accumulation.
	AccumulateFailed
)

// String returns the status name.
func (s AccumulateStatus) String() string {
	switch s {
	case AccumulateComplete:
		return "COMPLETE"
	case AccumulateTruncated:
		return "TRUNCATED"
	case AccumulateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// AccumulateResult reports how much of the response was collected.
type AccumulateResult struct {
	Status AccumulateStatus

	// Total is the number of bytes in the buffer.
	Total int

	// CloseNotify is set when the peer ended with close-notify rather
	// than a bare transport close.
	CloseNotify bool

	// Reads counts read attempts that returned data.
	Reads int
}

// Accumulate reads from r into buf until the peer closes, the buffer is
// full, or a fatal error occurs. Each read is bounded so it cannot pass the
// buffer's capacity. Once the buffer is full a single one-byte overflow check,
// outside the buffer, decides between Complete and Truncated.
//
// Would-block outcomes are retried under retry. On failure the bytes already
// collected stay in buf and the error is returned with an AccumulateFailed
// result.
func Accumulate(ctx context.Context, r Reader, buf *ResponseBuffer, chunkSize int, retry RetryPolicy) (AccumulateResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultReadChunkSize
	}
	if retry == nil {
		retry = Unbounded()
	}

	res := AccumulateResult{}
	if buf.Overflowed() {
		res.Status = AccumulateTruncated
		res.Total = buf.Len()
		return res, nil
	}

	attempt := 0
	var extra [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return failAccumulate(res, buf, newError(KindTransport, "accumulate", err))
		}

		full := buf.Remaining() == 0
		var out ReadOutcome
		if full {
			out = r.ReadInto(extra[:], 1)
		} else {
			maxLen := min(chunkSize, buf.Remaining())
			out = r.ReadInto(buf.window(maxLen), maxLen)
		}

		switch out.Status {
		case ReadBytes:
			attempt = 0
			if out.N == 0 {
				// Transport ended without close-notify.
				res.Status = AccumulateComplete
				res.Total = buf.Len()
				return res, nil
			}
			res.Reads++
			if full {
				buf.markOverflow()
				res.Status = AccumulateTruncated
				res.Total = buf.Len()
				return res, nil
			}
			if err := buf.advance(out.N); err != nil {
				return failAccumulate(res, buf, newError(KindProtocol, "accumulate", err))
			}

		case ReadPeerClosed:
			res.Status = AccumulateComplete
			res.Total = buf.Len()
			res.CloseNotify = true
			return res, nil

		case ReadWouldBlock:
			attempt++
			if err := retry.Wait(ctx, attempt); err != nil {
				return failAccumulate(res, buf, newError(KindTransport, "accumulate", err))
			}

		default:
			// Bytes delivered together with the failure are part of the
			// response; a failed overflow-check byte is not.
			if out.N > 0 && !full {
				res.Reads++
				_ = buf.advance(min(out.N, buf.Remaining()))
			}
			return failAccumulate(res, buf, out.Err)
		}
	}
}

func failAccumulate(res AccumulateResult, buf *ResponseBuffer, err error) (AccumulateResult, error) {
	res.Status = AccumulateFailed
	res.Total = buf.Len()
	return res, err
}
