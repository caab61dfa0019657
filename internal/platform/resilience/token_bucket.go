package resilience

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucket is a continuously refilling bucket: capacity tokens are spread
// evenly over window, and unused allowance accumulates up to capacity.
type TokenBucket struct {
	mu           sync.Mutex
	capacity     float64
	refillPerSec float64
	tokens       float64
	last         time.Time

	now func() time.Time
}

// TokenBucketState is a point-in-time snapshot used for logging and probes.
type TokenBucketState struct {
	Available float64
	Capacity  float64
	NextToken time.Time
}

func NewTokenBucket(capacity int, window time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Second
	}

	b := &TokenBucket{
		capacity:     float64(capacity),
		refillPerSec: float64(capacity) / window.Seconds(),
		now:          time.Now,
	}
	b.tokens = b.capacity
	b.last = b.now()
	return b
}

// Allow consumes one token if available. It never blocks.
func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// wait reports how long until one token becomes available without consuming
// anything. Zero means a token is available right now.
func (b *TokenBucket) wait() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	if b.tokens >= 1 {
		return 0
	}
	deficit := 1 - b.tokens
	return time.Duration(deficit / b.refillPerSec * float64(time.Second))
}

// take consumes one token unconditionally. Callers must have observed a zero
// wait first; the balance is floored at zero to keep refill math sane.
func (b *TokenBucket) take() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(b.now())
	b.tokens--
	if b.tokens < 0 {
		b.tokens = 0
	}
}

func (b *TokenBucket) State() TokenBucketState {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.refillLocked(now)
	state := TokenBucketState{
		Available: b.tokens,
		Capacity:  b.capacity,
		NextToken: now,
	}
	if b.tokens < 1 {
		deficit := 1 - b.tokens
		state.NextToken = now.Add(time.Duration(deficit / b.refillPerSec * float64(time.Second)))
	}
	return state
}

func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed.Seconds()*b.refillPerSec)
	b.last = now
}

// Limiter gates callers behind one or more token buckets. A caller proceeds
// only once every bucket has a token; token consumption across buckets is
// serialized, so concurrent callers never share a token.
type Limiter struct {
	mu      sync.Mutex
	buckets []*TokenBucket
}

func NewLimiter(buckets ...*TokenBucket) *Limiter {
	return &Limiter{buckets: buckets}
}

// NewLimiterFromConfig builds the two-bucket limiter described by cfg. A
// disabled config yields a limiter that always admits immediately.
func NewLimiterFromConfig(cfg RateLimitConfig) *Limiter {
	if !cfg.Enabled {
		return NewLimiter()
	}
	cfg = NormalizeRateLimitConfig(cfg)
	return NewLimiter(
		NewTokenBucket(cfg.BurstCapacity, cfg.BurstWindow),
		NewTokenBucket(cfg.SustainedCapacity, cfg.SustainedWindow),
	)
}

// Acquire blocks until every bucket yields a token or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := l.reserve()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow consumes a token from every bucket if all have one available.
func (l *Limiter) Allow() bool {
	return l.reserve() <= 0
}

// Wait reports the delay until the next acquisition could succeed without
// consuming any tokens.
func (l *Limiter) Wait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	var wait time.Duration
	for _, b := range l.buckets {
		if d := b.wait(); d > wait {
			wait = d
		}
	}
	return wait
}

func (l *Limiter) State() []TokenBucketState {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]TokenBucketState, 0, len(l.buckets))
	for _, b := range l.buckets {
		out = append(out, b.State())
	}
	return out
}

// reserve takes one token from every bucket when all are ready, or reports
// the longest wait among them. The limiter mutex makes the peek-then-take
// sequence atomic with respect to other callers.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	var wait time.Duration
	for _, b := range l.buckets {
		if d := b.wait(); d > wait {
			wait = d
		}
	}
	if wait > 0 {
		return wait
	}
	for _, b := range l.buckets {
		b.take()
	}
	return 0
}
