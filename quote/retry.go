package quote

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides whether and when a failed fetch is attempted again.
//
// The unbounded policy re-issues the request immediately, forever, with no
// backoff. It reproduces the widget's historical behavior and is kept behind
// a flag; the bounded policy is the default.
type RetryPolicy struct {
	// Unbounded retries immediately and never gives up. The other fields are ignored.
	Unbounded bool
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialInterval is the delay after the first failure.
	InitialInterval time.Duration
	// MaxInterval caps the delay.
	MaxInterval time.Duration
	// Multiplier grows the delay after each failure.
	Multiplier float64
	// JitterFactor spreads the delay by +/- this fraction.
	JitterFactor float64
}

// LegacyRetryPolicy returns the unbounded, immediate retry policy.
func LegacyRetryPolicy() RetryPolicy {
	return RetryPolicy{Unbounded: true}
}

// DefaultRetryPolicy returns the bounded policy used unless configured otherwise.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.25,
	}
}

// Next returns the delay before the next attempt after failures consecutive
// failed attempts. ok is false once the attempts are exhausted.
func (p RetryPolicy) Next(failures int) (delay time.Duration, ok bool) {
	if p.Unbounded {
		return 0, true
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if failures >= maxAttempts {
		return 0, false
	}
	if failures < 1 {
		failures = 1
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	backoff := float64(p.InitialInterval) * math.Pow(multiplier, float64(failures-1))
	if p.MaxInterval > 0 && backoff > float64(p.MaxInterval) {
		backoff = float64(p.MaxInterval)
	}
	if p.JitterFactor > 0 {
		// rand in [0,1) scaled to [-1,1)
		backoff += backoff * p.JitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter only
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff), true
}

// FetchWithRetry calls f until it succeeds, the policy gives up or ctx is done.
// onFailure, if set, is called after every failed attempt with its 1-based number.
func FetchWithRetry(ctx context.Context, f Fetcher, p RetryPolicy, onFailure func(attempt int, err error)) (Quote, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for failures := 0; ; {
		q, err := f.Fetch(ctx)
		if err == nil {
			return q, nil
		}
		failures++
		if onFailure != nil {
			onFailure(failures, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Quote{}, ctxErr
		}
		delay, ok := p.Next(failures)
		if !ok {
			return Quote{}, err
		}
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Quote{}, ctx.Err()
		case <-timer.C:
		}
	}
}
