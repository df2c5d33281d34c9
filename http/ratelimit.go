package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ThrottleCooldown is how long after the last throttled response the original rate is restored.
	ThrottleCooldown = 2 * time.Minute
	// MinRateFraction is the lowest fraction of the configured rate a throttled host drops to.
	MinRateFraction = 0.25
)

// RateLimiter paces requests per host with a token bucket and slows a host
// down after it answers 429/503.
type RateLimiter struct {
	mu       sync.Mutex
	rps      float64
	custom   map[string]float64
	limiters map[string]*rate.Limiter
	throttle map[string]*throttleState
}

type throttleState struct {
	strikes   int
	lastHit   time.Time
	holdUntil time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per host.
// A zero rps disables pacing.
func NewRateLimiter(rps float64) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		custom:   make(map[string]float64),
		limiters: make(map[string]*rate.Limiter),
		throttle: make(map[string]*throttleState),
	}
}

// SetHostRate overrides the rate for one host.
func (rl *RateLimiter) SetHostRate(host string, rps float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.custom[host] = rps
	delete(rl.limiters, host)
}

// Wait blocks until a request to host is allowed or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if rl == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	var hold time.Duration
	if st, ok := rl.throttle[host]; ok {
		hold = time.Until(st.holdUntil)
	}
	limiter := rl.limiterLocked(host)
	rl.mu.Unlock()

	if hold > 0 {
		timer := time.NewTimer(hold)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// RecordThrottle notes a 429/503 from host. Each consecutive strike lowers
// the host's rate, and retryAfter holds further requests back.
func (rl *RateLimiter) RecordThrottle(host string, retryAfter time.Duration) {
	if rl == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	st, ok := rl.throttle[host]
	if !ok {
		st = &throttleState{}
		rl.throttle[host] = st
	}
	st.strikes++
	st.lastHit = time.Now()
	if retryAfter > 0 {
		st.holdUntil = st.lastHit.Add(retryAfter)
	}

	if limiter := rl.limiterLocked(host); limiter != nil {
		fraction := 1.0 / float64(st.strikes+1)
		if fraction < MinRateFraction {
			fraction = MinRateFraction
		}
		limiter.SetLimit(rate.Limit(rl.rateLocked(host) * fraction))
	}
}

// RecordSuccess restores a throttled host once the cooldown has passed.
func (rl *RateLimiter) RecordSuccess(host string) {
	if rl == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	st, ok := rl.throttle[host]
	if !ok || time.Since(st.lastHit) < ThrottleCooldown {
		return
	}
	delete(rl.throttle, host)
	if limiter, ok := rl.limiters[host]; ok {
		limiter.SetLimit(rate.Limit(rl.rateLocked(host)))
	}
}

// Limit returns the current rate for host, 0 meaning unlimited.
func (rl *RateLimiter) Limit(host string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter := rl.limiterLocked(host); limiter != nil {
		return float64(limiter.Limit())
	}
	return 0
}

func (rl *RateLimiter) rateLocked(host string) float64 {
	if rps, ok := rl.custom[host]; ok {
		return rps
	}
	return rl.rps
}

// limiterLocked must be called with mu held.
func (rl *RateLimiter) limiterLocked(host string) *rate.Limiter {
	rps := rl.rateLocked(host)
	if rps <= 0 {
		return nil
	}
	if limiter, ok := rl.limiters[host]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = limiter
	return limiter
}
