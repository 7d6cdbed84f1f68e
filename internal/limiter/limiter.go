package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket throttles byte throughput across concurrent deleters.
// Capacity equals the per-second rate, so at most one second of budget
// accumulates while idle.
type TokenBucket struct {
	mu     sync.Mutex
	lim    *rate.Limiter
	bps    int64
	waited time.Duration

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// NewTokenBucket creates a bucket that starts full. A rate of zero or less
// disables throttling.
func NewTokenBucket(bytesPerSecond int64) *TokenBucket {
	b := &TokenBucket{
		bps:  bytesPerSecond,
		now:  time.Now,
		wait: sleepContext,
	}
	if bytesPerSecond > 0 {
		b.lim = rate.NewLimiter(rate.Limit(bytesPerSecond), int(bytesPerSecond))
	}
	return b
}

// Rate returns the configured bytes per second.
func (b *TokenBucket) Rate() int64 {
	return b.bps
}

// Acquire blocks until n tokens have been taken from the bucket. Requests
// larger than the capacity are taken in capacity-sized chunks so they still
// complete. Only a cancelled context interrupts the wait.
func (b *TokenBucket) Acquire(ctx context.Context, n int64) error {
	if n <= 0 || b.lim == nil {
		return nil
	}
	for n > 0 {
		chunk := min(n, b.bps)
		if err := b.take(ctx, int(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// take reserves n tokens and sleeps out the reservation delay, handing the
// tokens back if ctx ends first.
func (b *TokenBucket) take(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Reservation times must not go backwards or the limiter over-grants.
	b.mu.Lock()
	start := b.now()
	r := b.lim.ReserveN(start, n)
	b.mu.Unlock()

	delay := r.DelayFrom(start)
	if delay <= 0 {
		return nil
	}

	err := b.wait(ctx, delay)
	end := b.now()
	b.mu.Lock()
	b.waited += end.Sub(start)
	b.mu.Unlock()
	if err != nil {
		r.CancelAt(end)
		return err
	}
	return nil
}

// Tokens returns the tokens available right now. Outstanding reservations
// read as an empty bucket.
func (b *TokenBucket) Tokens() float64 {
	if b.lim == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return max(0, b.lim.TokensAt(b.now()))
}

// Waited returns the total time callers spent blocked in Acquire.
func (b *TokenBucket) Waited() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waited
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
