// ratelimit.go bounds outbound request rate per endpoint category using
// golang.org/x/time/rate, replacing a hand-rolled token bucket with the
// ecosystem's standard limiter.
//
// Three limiters are maintained:
//   - Order:  350 burst / 50 per sec (maps to the venue's 3500/10s limit)
//   - Cancel: 300 burst / 30 per sec (maps to 3000/10s limit)
//   - Book:   150 burst / 15 per sec (maps to 1500/10s limit)
package exchange

import "golang.org/x/time/rate"

// RateLimiter groups per-category limiters for the placement and book
// endpoints.
type RateLimiter struct {
	Order  *rate.Limiter
	Cancel *rate.Limiter
	Book   *rate.Limiter
}

// NewRateLimiter creates limiters tuned to the venue's published limits.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Order:  rate.NewLimiter(50, 350),
		Cancel: rate.NewLimiter(30, 300),
		Book:   rate.NewLimiter(15, 150),
	}
}
