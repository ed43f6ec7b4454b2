package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocoder/tlsfetch/pkg/transport"
)

func TestAccumulateComplete(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		capacity int
		chunk    int
	}{
		{"small", 10, 4096, 1500},
		{"exact multiple of chunk", 3000, 4096, 750},
		{"one short of capacity", 4095, 4096, 1500},
		{"single byte chunks", 20, 32, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReader{steps: []fakeRead{
				{status: ReadBytes, data: bytesOf(tt.size, 'x')},
				{status: ReadPeerClosed},
			}}
			buf := NewResponseBuffer(tt.capacity)

			res, err := Accumulate(context.Background(), r, buf, tt.chunk, nil)
			require.NoError(t, err)
			assert.Equal(t, AccumulateComplete, res.Status)
			assert.Equal(t, tt.size, res.Total)
			assert.True(t, res.CloseNotify)
			assert.Equal(t, bytesOf(tt.size, 'x'), buf.Bytes())
			for _, maxLen := range r.calls {
				assert.LessOrEqual(t, maxLen, tt.chunk)
			}
		})
	}
}

func TestAccumulateExactCapacityThenClose(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: bytesOf(64, 'a')},
		{status: ReadPeerClosed},
	}}
	buf := NewResponseBuffer(64)

	res, err := Accumulate(context.Background(), r, buf, 16, nil)
	require.NoError(t, err)
	assert.Equal(t, AccumulateComplete, res.Status)
	assert.Equal(t, 64, res.Total)
	assert.False(t, buf.Overflowed())
	// Last call is the one-byte overflow check.
	assert.Equal(t, 1, r.calls[len(r.calls)-1])
}

func TestAccumulateTruncated(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: append(bytesOf(100, 'a'), 'b', 'c')},
		{status: ReadPeerClosed},
	}}
	buf := NewResponseBuffer(100)

	res, err := Accumulate(context.Background(), r, buf, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, AccumulateTruncated, res.Status)
	assert.Equal(t, 100, res.Total)
	assert.True(t, buf.Overflowed())
	assert.Equal(t, bytesOf(100, 'a'), buf.Bytes(), "overflow-check byte must not enter the buffer")

	// Nothing is appended after overflow.
	res, err = Accumulate(context.Background(), r, buf, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, AccumulateTruncated, res.Status)
	assert.Equal(t, 100, buf.Len())
}

func TestAccumulateZeroCapacity(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		r := &fakeReader{steps: []fakeRead{{status: ReadPeerClosed}}}
		buf := NewResponseBuffer(0)

		res, err := Accumulate(context.Background(), r, buf, 1500, nil)
		require.NoError(t, err)
		assert.Equal(t, AccumulateComplete, res.Status)
		assert.Equal(t, 0, res.Total)
	})

	t.Run("any data truncates", func(t *testing.T) {
		r := &fakeReader{steps: []fakeRead{{status: ReadBytes, data: []byte("x")}}}
		buf := NewResponseBuffer(0)

		res, err := Accumulate(context.Background(), r, buf, 1500, nil)
		require.NoError(t, err)
		assert.Equal(t, AccumulateTruncated, res.Status)
		assert.Equal(t, 0, res.Total)
	})
}

func TestAccumulateZeroReadIsComplete(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: []byte("partial")},
		{status: ReadBytes, data: nil},
	}}
	buf := NewResponseBuffer(64)

	res, err := Accumulate(context.Background(), r, buf, 1500, nil)
	require.NoError(t, err)
	assert.Equal(t, AccumulateComplete, res.Status)
	assert.Equal(t, 7, res.Total)
	assert.False(t, res.CloseNotify)
}

func TestAccumulatePeerClosedMidStream(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: bytesOf(500, 'z')},
		{status: ReadPeerClosed},
		{status: ReadBytes, data: []byte("never read")},
	}}
	buf := NewResponseBuffer(4096)

	res, err := Accumulate(context.Background(), r, buf, 1500, nil)
	require.NoError(t, err)
	assert.Equal(t, AccumulateComplete, res.Status)
	assert.Equal(t, 500, res.Total)
	assert.Len(t, r.steps, 1)
}

func TestAccumulateWouldBlockRetries(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadWouldBlock},
		{status: ReadBytes, data: []byte("hello")},
		{status: ReadWouldBlock},
		{status: ReadWouldBlock},
		{status: ReadBytes, data: []byte(" world")},
		{status: ReadPeerClosed},
	}}
	buf := NewResponseBuffer(64)

	var attempts []int
	retry := RetryFunc(func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		return nil
	})

	res, err := Accumulate(context.Background(), r, buf, 1500, retry)
	require.NoError(t, err)
	assert.Equal(t, AccumulateComplete, res.Status)
	assert.Equal(t, "hello world", string(buf.Bytes()))
	assert.Equal(t, []int{1, 1, 2}, attempts, "attempt counter resets after progress")
}

func TestAccumulateRetryExhausted(t *testing.T) {
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: []byte("abc")},
		{status: ReadWouldBlock},
		{status: ReadWouldBlock},
		{status: ReadWouldBlock},
	}}
	buf := NewResponseBuffer(64)

	res, err := Accumulate(context.Background(), r, buf, 1500, MaxAttempts(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, AccumulateFailed, res.Status)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, "abc", string(buf.Bytes()))
}

func TestAccumulateFatalKeepsPartial(t *testing.T) {
	cause := newError(KindTransport, "read", &transport.IOError{Op: "receive", Err: errors.New("connection reset")})
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: bytesOf(1200, 'p')},
		{status: ReadFailed, err: cause},
	}}
	buf := NewResponseBuffer(4096)

	res, err := Accumulate(context.Background(), r, buf, 1500, nil)
	require.Error(t, err)
	assert.Equal(t, AccumulateFailed, res.Status)
	assert.Equal(t, 1200, res.Total)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, bytesOf(1200, 'p'), buf.Bytes())
}

func TestAccumulateFailureKeepsBytesOfFailingRead(t *testing.T) {
	cause := newError(KindTransport, "read", &transport.IOError{Op: "receive", Err: errors.New("connection reset")})
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: []byte("head-")},
		{status: ReadFailed, data: []byte("tail"), err: cause},
	}}
	buf := NewResponseBuffer(64)

	res, err := Accumulate(context.Background(), r, buf, 16, nil)
	require.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, AccumulateFailed, res.Status)
	assert.Equal(t, 9, res.Total)
	assert.Equal(t, "head-tail", string(buf.Bytes()))
}

func TestAccumulateFailedOverflowCheckStaysOutOfBuffer(t *testing.T) {
	cause := newError(KindProtocol, "read", errors.New("bad record mac"))
	r := &fakeReader{steps: []fakeRead{
		{status: ReadBytes, data: bytesOf(8, 'a')},
		{status: ReadFailed, data: []byte("z"), err: cause},
	}}
	buf := NewResponseBuffer(8)

	res, err := Accumulate(context.Background(), r, buf, 8, nil)
	require.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, AccumulateFailed, res.Status)
	assert.Equal(t, 8, res.Total)
	assert.False(t, buf.Overflowed())
	assert.Equal(t, bytesOf(8, 'a'), buf.Bytes())
}

func TestAccumulateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeReader{}
	buf := NewResponseBuffer(16)

	res, err := Accumulate(ctx, r, buf, 1500, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, AccumulateFailed, res.Status)
	assert.Empty(t, r.calls)
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer(8)
	assert.Equal(t, 8, buf.Cap())

	n, err := buf.Append([]byte("abcde"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, buf.Remaining())

	n, err = buf.Append([]byte("fghi"))
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.Equal(t, 0, n)
	assert.True(t, buf.Overflowed())
	assert.Equal(t, "abcde", string(buf.Bytes()))

	_, err = buf.Append([]byte("f"))
	assert.ErrorIs(t, err, ErrBufferOverflow, "no appends after overflow")

	w := buf.window(10)
	assert.Len(t, w, 3)
	assert.Equal(t, 3, cap(w))
	assert.Error(t, buf.advance(4))

	assert.Equal(t, 0, NewResponseBuffer(-1).Cap())
}
