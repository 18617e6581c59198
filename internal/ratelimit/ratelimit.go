// Package ratelimit throttles the proof server's POST /proof endpoint
// per caller, grounded on the teacher's cmd/auctiond/rate_limiter.go
// per-participant token-bucket shape but reimplemented over the
// ecosystem's own token-bucket library instead of a hand-rolled one.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerKey manages one golang.org/x/time/rate.Limiter per caller key
// (typically a wallet address or remote IP), lazily created on first use.
type PerKey struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// New builds a PerKey limiter allowing r events per second with the given
// burst, per distinct key.
func New(r rate.Limit, burst int) *PerKey {
	return &PerKey{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// Allow reports whether a request for key may proceed, consuming a token
// if so.
func (p *PerKey) Allow(key string) bool {
	return p.limiterFor(key).Allow()
}

func (p *PerKey) limiterFor(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.r, p.burst)
		p.limiters[key] = l
	}
	return l
}
