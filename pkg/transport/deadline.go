package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// interruptDeadline is in the past, so setting it fails a blocked call at once.
var interruptDeadline = time.Unix(1, 0)

// maxPollWait caps PollWait.
const maxPollWait = 50 * time.Millisecond

// BindContext bounds blocking Send and Receive calls on tr by ctx. The ctx
// deadline becomes the transport deadline, and cancelling ctx interrupts a
// call in progress. release clears both; once it returns the interrupt can
// no longer fire. Transports that are not Deadliners are left alone.
func BindContext(ctx context.Context, tr Transport) (release func()) {
	d, ok := tr.(Deadliner)
	if !ok || ctx.Done() == nil {
		return func() {}
	}

	deadline, _ := ctx.Deadline()
	setDeadlines(d, deadline)

	var (
		mu       sync.Mutex
		released bool
	)
	stop := context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		if !released {
			setDeadlines(d, interruptDeadline)
		}
	})

	return func() {
		stop()
		mu.Lock()
		defer mu.Unlock()
		released = true
		setDeadlines(d, time.Time{})
	}
}

// PollWait is the wait used on would-block when no WaitFunc is set: attempt
// milliseconds, at most 50, or until ctx is done.
func PollWait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(min(time.Duration(attempt)*time.Millisecond, maxPollWait))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func setDeadlines(d Deadliner, t time.Time) {
	_ = d.SetReadDeadline(t)
	_ = d.SetWriteDeadline(t)
}

// deadline holds a caller deadline as Unix nanoseconds, zero for none.
type deadline struct {
	at atomic.Int64
}

func (d *deadline) set(t time.Time) {
	if t.IsZero() {
		d.at.Store(0)
		return
	}
	d.at.Store(t.UnixNano())
}

// bound returns the earlier of t and the caller deadline.
func (d *deadline) bound(t time.Time) time.Time {
	if at := d.at.Load(); at != 0 && at < t.UnixNano() {
		return time.Unix(0, at)
	}
	return t
}

func (d *deadline) expired() bool {
	at := d.at.Load()
	return at != 0 && time.Now().UnixNano() >= at
}
