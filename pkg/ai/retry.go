package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledGenerator wraps a TextGenerator with a request-rate cap and
// bounded retries on transient provider failures.
type ThrottledGenerator struct {
	inner       TextGenerator
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

// ThrottleOptions tunes the wrapper. Zero values fall back to defaults:
// 2 requests per second, 3 attempts, 500ms base backoff.
type ThrottleOptions struct {
	RequestsPerSecond float64
	MaxAttempts       int
	BaseBackoff       time.Duration
}

// NewThrottledGenerator wraps gen with throttling and retries.
func NewThrottledGenerator(gen TextGenerator, opts ThrottleOptions) *ThrottledGenerator {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &ThrottledGenerator{
		inner:       gen,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		maxAttempts: attempts,
		baseBackoff: backoff,
	}
}

// GenerateText waits for rate-limit headroom, then calls the wrapped
// generator, retrying transient failures with exponential backoff.
func (t *ThrottledGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	backoff := t.baseBackoff
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
		text, err := t.inner.GenerateText(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return "", err
		}
		if attempt < t.maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return "", lastErr
}
