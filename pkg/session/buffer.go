package session

import (
	"errors"
	"fmt"
)

// ErrBufferOverflow is returned when data does not fit the remaining capacity.
var ErrBufferOverflow = errors.New("response buffer overflow")

// ResponseBuffer is a fixed-capacity byte buffer with a write cursor and an
// overflow flag. The cursor never exceeds the capacity; once the overflow
// flag is set nothing more is appended.
type ResponseBuffer struct {
	data     []byte
	cursor   int
	overflow bool
}

// NewResponseBuffer allocates a buffer with the given capacity.
// A negative capacity is treated as zero.
func NewResponseBuffer(capacity int) *ResponseBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &ResponseBuffer{data: make([]byte, capacity)}
}

// Cap returns the fixed capacity.
func (b *ResponseBuffer) Cap() int { return len(b.data) }

// Len returns the number of bytes written.
func (b *ResponseBuffer) Len() int { return b.cursor }

// Remaining returns the free capacity.
func (b *ResponseBuffer) Remaining() int { return len(b.data) - b.cursor }

// Overflowed reports whether more data arrived than fit.
func (b *ResponseBuffer) Overflowed() bool { return b.overflow }

// Bytes returns the written bytes. The slice aliases the buffer.
func (b *ResponseBuffer) Bytes() []byte { return b.data[:b.cursor:b.cursor] }

// Append copies p into the buffer if all of it fits. Otherwise nothing is
// written, the overflow flag is set and ErrBufferOverflow is returned.
func (b *ResponseBuffer) Append(p []byte) (int, error) {
	if b.overflow {
		return 0, ErrBufferOverflow
	}
	if len(p) > b.Remaining() {
		b.overflow = true
		return 0, fmt.Errorf("%w: %d bytes with %d remaining", ErrBufferOverflow, len(p), b.Remaining())
	}
	n := copy(b.data[b.cursor:], p)
	b.cursor += n
	return n, nil
}

// window returns the next n writable bytes, capped so nothing past them
// can be reached through the slice.
func (b *ResponseBuffer) window(n int) []byte {
	if n > b.Remaining() {
		n = b.Remaining()
	}
	end := b.cursor + n
	return b.data[b.cursor:end:end]
}

// advance moves the cursor after bytes were written through window.
func (b *ResponseBuffer) advance(n int) error {
	if n < 0 || n > b.Remaining() {
		return fmt.Errorf("%w: advance %d with %d remaining", ErrBufferOverflow, n, b.Remaining())
	}
	b.cursor += n
	return nil
}

func (b *ResponseBuffer) markOverflow() { b.overflow = true }
