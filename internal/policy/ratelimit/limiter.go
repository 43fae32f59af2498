// Package ratelimit paces outgoing requests with one token bucket per host.
// Archive traffic usually targets a single host, so the bucket for that host
// is the effective global rate.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/wayback-journey/internal/metrics"
)

// Config sets the request rate. A non-positive RPS disables pacing.
type Config struct {
	RPS   float64
	Burst int
	// PerHost overrides RPS for specific hosts (lowercase, without port).
	PerHost map[string]float64
}

// Limiter hands out per-host tokens.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{cfg: cfg, buckets: make(map[string]*rate.Limiter)}
}

// Wait blocks until the host of rawURL may be requested again or ctx ends.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostKey(rawURL)
	bucket := l.bucket(host)

	start := time.Now()
	if err := bucket.Wait(ctx); err != nil {
		return fmt.Errorf("wait for %s: %w", host, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[host]; ok {
		return b
	}
	rps := l.cfg.RPS
	if override, ok := l.cfg.PerHost[host]; ok {
		rps = override
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	b := rate.NewLimiter(limit, l.cfg.Burst)
	l.buckets[host] = b
	return b
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
