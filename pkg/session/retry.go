package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// RetryPolicy decides whether to retry after a want-read, want-write or
// would-block signal. attempt counts consecutive signals without progress,
// starting at 1. Returning nil means retry now; any error aborts the
// operation as a transport failure.
type RetryPolicy interface {
	Wait(ctx context.Context, attempt int) error
}

// RetryFunc adapts a function to RetryPolicy.
type RetryFunc func(ctx context.Context, attempt int) error

// Wait calls f.
func (f RetryFunc) Wait(ctx context.Context, attempt int) error {
	return f(ctx, attempt)
}

// Unbounded retries until ctx is done. With a context that never ends this
// retries forever; pair it with a deadline.
func Unbounded() RetryPolicy {
	return RetryFunc(func(ctx context.Context, _ int) error {
		return ctx.Err()
	})
}

// MaxAttempts retries at most n consecutive times without progress.
// n <= 0 allows no retries.
func MaxAttempts(n int) RetryPolicy {
	return RetryFunc(func(ctx context.Context, attempt int) error {
		if attempt > n {
			return fmt.Errorf("%w: %d", ErrRetryExhausted, n)
		}
		return ctx.Err()
	})
}

// Backoff defaults.
const (
	// DefaultInitialBackoff is the first retry delay.
	DefaultInitialBackoff = 1 * time.Millisecond

	// DefaultMaxBackoff caps the retry delay.
	DefaultMaxBackoff = 250 * time.Millisecond

	// DefaultBackoffMultiplier is the factor by which the delay grows.
	DefaultBackoffMultiplier = 2.0

	// DefaultJitterFactor is the maximum jitter as a fraction of the delay.
	DefaultJitterFactor = 0.25
)

// BackoffConfig configures a BackoffPolicy.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64

	// MaxAttempts bounds consecutive retries. Zero means unbounded.
	MaxAttempts int
}

// BackoffPolicy sleeps with exponential backoff and jitter between retries.
// Safe for use by several sessions.
type BackoffPolicy struct {
	cfg BackoffConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff creates a backoff policy, filling unset fields with defaults.
func NewBackoff(cfg BackoffConfig) *BackoffPolicy {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = DefaultBackoffMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &BackoffPolicy{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns the base delay (without jitter) before retry attempt.
// The result never exceeds Max, even when Initial does.
func (b *BackoffPolicy) Delay(attempt int) time.Duration {
	d := min(b.cfg.Initial, b.cfg.Max)
	for i := 1; i < attempt && d < b.cfg.Max; i++ {
		d = min(time.Duration(float64(d)*b.cfg.Multiplier), b.cfg.Max)
	}
	return d
}

// Wait sleeps for the jittered delay or until ctx is done.
func (b *BackoffPolicy) Wait(ctx context.Context, attempt int) error {
	if b.cfg.MaxAttempts > 0 && attempt > b.cfg.MaxAttempts {
		return fmt.Errorf("%w: %d", ErrRetryExhausted, b.cfg.MaxAttempts)
	}

	timer := time.NewTimer(b.addJitter(b.Delay(attempt)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// addJitter adds random jitter to a delay.
func (b *BackoffPolicy) addJitter(d time.Duration) time.Duration {
	if b.cfg.Jitter <= 0 {
		return d
	}
	b.mu.Lock()
	f := b.rng.Float64()
	b.mu.Unlock()
	return d + time.Duration(float64(d)*b.cfg.Jitter*f)
}
