package youtube

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Estimated quota cost per endpoint in Data API units.
const (
	costChannelsList      = 1
	costPlaylistItemsList = 1
	costSearchList        = 100
)

// RateLimiter spaces outgoing Data API calls with a token bucket and keeps a
// running estimate of the quota units spent.
type RateLimiter struct {
	limiter *rate.Limiter

	mu    sync.Mutex
	spent int
	calls map[string]int
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of one. rps <= 0 disables throttling.
func NewRateLimiter(rps float64) *RateLimiter {
	rl := &RateLimiter{calls: make(map[string]int)}
	if rps > 0 {
		rl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return rl
}

// Wait blocks until a request may be sent or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.limiter == nil {
		return ctx.Err()
	}
	return rl.limiter.Wait(ctx)
}

// track records units spent on endpoint.
func (rl *RateLimiter) track(endpoint string, units int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.spent += units
	rl.calls[endpoint]++
}

// Spent returns the estimated quota units used so far.
func (rl *RateLimiter) Spent() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.spent
}

// Calls returns the number of calls sent to endpoint.
func (rl *RateLimiter) Calls(endpoint string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.calls[endpoint]
}
