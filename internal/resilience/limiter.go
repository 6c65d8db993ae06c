package resilience

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Limiter spaces out outbound requests so that successive grants are at
// least 1/perSecond apart. The first grant is immediate. A Limiter is safe
// for concurrent use; waiters are admitted one at a time.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a Limiter allowing perSecond grants per second with no
// burst. A non-positive rate disables limiting.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until the next grant or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "resilience: rate limit wait")
	}
	return nil
}

// Limit returns the configured grants per second.
func (l *Limiter) Limit() float64 {
	return float64(l.limiter.Limit())
}
