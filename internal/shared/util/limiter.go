package util

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter throttles file reads. A nil *Limiter never blocks.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows perSecond events per second with a burst of one
// second's worth. It returns nil (unlimited) when perSecond <= 0.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := max(1, int(math.Ceil(perSecond)))
	return &Limiter{inner: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until n events may happen or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}
	return l.inner.WaitN(ctx, n)
}
