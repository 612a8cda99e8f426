// Package http provides the outbound HTTP plumbing for Data API calls: a
// per-host token bucket and a transport that injects the API key.
package http

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter manages per-host request rate limiting using a token bucket.
// A host that answers with 429 or 403 has its rate reduced until it recovers.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*BackoffState
	mu           sync.Mutex
	config       RateLimiterConfig
	now          func() time.Time
}

// BackoffState tracks rate limit backoff for a host.
type BackoffState struct {
	// CurrentBackoff is the current backoff duration
	CurrentBackoff time.Duration
	// LastError is when the last rate limit response arrived
	LastError time.Time
	// ConsecutiveErrors is the count of consecutive rate limit responses
	ConsecutiveErrors int
	// OriginalRPS is the configured rate to restore after cooldown
	OriginalRPS float64
	// ReducedRPS is the current reduced rate (0 means using original)
	ReducedRPS float64
}

const (
	// InitialBackoff is the first backoff after a rate limit response.
	InitialBackoff = 1 * time.Second
	// MaxBackoff caps exponential backoff.
	MaxBackoff = 60 * time.Second
	// BackoffMultiplier is the growth factor between consecutive backoffs.
	BackoffMultiplier = 2.0
	// BackoffCooldownPeriod is how long after the last error before the rate is restored.
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the lowest fraction of the configured rate a host is reduced to.
	MinRPSMultiplier = 0.25
)

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// RPS is the default requests per second per host. Zero disables limiting.
	RPS float64
	// CustomRates maps hosts to their own RPS values.
	CustomRates map[string]float64
	// EnableDynamicBackoff reduces a host's rate after 429/403 responses.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns the defaults for the Data API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPS:                  5.0,
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}
	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*BackoffState),
		config:       cfg,
		now:          time.Now,
	}
}

// Wait blocks until the limiter for the URL's host grants a token or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}
	limiter := rl.getLimiter(extractHost(urlStr))
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) getLimiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rps := rl.getRPS(host)
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

// getRPS must be called with mu held.
func (rl *RateLimiter) getRPS(host string) float64 {
	if rps, ok := rl.config.CustomRates[host]; ok {
		return rps
	}
	return rl.config.RPS
}

// extractHost returns the URL host without port, or "unknown".
func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}

// RecordRateLimitError records a 429/403 from the URL's host and lowers its rate.
// Returns the recommended backoff before the next request.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialBackoff
	}

	host := extractHost(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		state = &BackoffState{
			CurrentBackoff: InitialBackoff,
			OriginalRPS:    rl.getRPS(host),
		}
		rl.backoffState[host] = state
	}
	state.LastError = rl.now()
	state.ConsecutiveErrors++

	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * BackoffMultiplier)
		if state.CurrentBackoff > MaxBackoff {
			state.CurrentBackoff = MaxBackoff
		}
	}
	if retryAfter > state.CurrentBackoff {
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(host, state)
	return state.CurrentBackoff
}

// reduceRate must be called with mu held.
func (rl *RateLimiter) reduceRate(host string, state *BackoffState) {
	factor := 0.75
	switch {
	case state.ConsecutiveErrors >= 3:
		factor = MinRPSMultiplier
	case state.ConsecutiveErrors == 2:
		factor = 0.5
	}

	state.ReducedRPS = state.OriginalRPS * factor
	if limiter, ok := rl.limiters[host]; ok && state.ReducedRPS > 0 {
		limiter.SetLimit(rate.Limit(state.ReducedRPS))
	}
}

// RecordSuccess records a successful response, restoring the host's rate once
// the cooldown has passed.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	host := extractHost(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		return
	}

	if rl.now().Sub(state.LastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[host]; ok && state.OriginalRPS > 0 {
			limiter.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoffState, host)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--
		// Recover to half rate, full recovery waits for the cooldown.
		if state.ConsecutiveErrors == 0 {
			if half := state.OriginalRPS * 0.5; half > state.ReducedRPS {
				state.ReducedRPS = half
				if limiter, ok := rl.limiters[host]; ok {
					limiter.SetLimit(rate.Limit(half))
				}
			}
		}
	}
}
