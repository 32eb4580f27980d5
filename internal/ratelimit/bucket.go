// Package ratelimit guards gateway requests with a token bucket.
//
// The Client Portal gateway rejects clients that exceed roughly fifty
// requests per second, so every request made by the api package waits on a
// shared Bucket before it is sent.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/treasury-basis/internal/metrics"
)

// DefaultPerSecond is the gateway request ceiling used when none is configured.
const DefaultPerSecond = 49

// Bucket is a request-rate limiter safe for concurrent use.
type Bucket struct {
	limiter *rate.Limiter
}

// New creates a Bucket refilling perSecond tokens per second with the given
// burst. Non-positive values fall back to DefaultPerSecond.
func New(perSecond, burst int) *Bucket {
	if perSecond <= 0 {
		perSecond = DefaultPerSecond
	}
	if burst <= 0 {
		burst = perSecond
	}
	return &Bucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (b *Bucket) Wait(ctx context.Context) error {
	r := b.limiter.Reserve()
	if !r.OK() {
		return b.limiter.Wait(ctx)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	metrics.RateLimitWaits.Inc()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (b *Bucket) Allow() bool {
	return b.limiter.Allow()
}

// Tokens returns the tokens currently available.
func (b *Bucket) Tokens() float64 {
	return b.limiter.Tokens()
}
