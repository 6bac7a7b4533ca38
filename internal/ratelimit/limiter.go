// Package ratelimit throttles booking write attempts per requester and per
// source IP. It exists to blunt scripted slot grabbing, not to arbitrate
// fairness; the ledger's conflict checks stay the source of truth.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mka1601/courtmatch/internal/api/authn"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the write-attempt limits.
type Config struct {
	// Minimum gap between two write attempts by one requester.
	Cooldown time.Duration
	// Max write attempts per requester per hour.
	MaxPerHour int
	// Max write attempts per source IP per hour. Catches identity-cycling.
	MaxIPPerHour int

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Cooldown:     2 * time.Second,
		MaxPerHour:   60,
		MaxIPPerHour: 240,
	}
}

type entry struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

// Limiter tracks booking write attempts in memory. State is per process;
// a horizontally scaled deployment limits per instance.
type Limiter struct {
	config *Config
	clock  Clock

	mu          sync.Mutex
	byRequester map[string]*entry
	byIP        map[string]*entry
	lastSweep   time.Time
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		config:      cfg,
		clock:       clock,
		byRequester: make(map[string]*entry),
		byIP:        make(map[string]*entry),
	}
}

// Allow records one write attempt and reports whether it may proceed.
func (l *Limiter) Allow(requesterID, ip string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	if requesterID != "" && !l.allowLocked(l.byRequester, requesterID, now, l.config.Cooldown, l.config.MaxPerHour) {
		return false
	}
	if ip != "" && !l.allowLocked(l.byIP, ip, now, 0, l.config.MaxIPPerHour) {
		return false
	}
	return true
}

func (l *Limiter) allowLocked(m map[string]*entry, key string, now time.Time, cooldown time.Duration, maxPerHour int) bool {
	e := m[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		m[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return true
	}
	if cooldown > 0 && now.Sub(e.lastAt) < cooldown {
		return false
	}
	if maxPerHour > 0 && e.count >= maxPerHour {
		return false
	}
	e.count++
	e.lastAt = now
	return true
}

// sweepLocked drops windows that aged out. Runs at most once a minute.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	for key, e := range l.byRequester {
		if now.Sub(e.firstAt) >= time.Hour {
			delete(l.byRequester, key)
		}
	}
	for key, e := range l.byIP {
		if now.Sub(e.firstAt) >= time.Hour {
			delete(l.byIP, key)
		}
	}
}

// Middleware rejects over-limit booking writes with 429. Reads pass through
// untouched, so it belongs only on mutating routes.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requesterID := ""
		if requester, ok := authn.RequesterFromContext(r.Context()); ok {
			requesterID = requester.ID
		}
		ip := clientIP(r)

		if !l.Allow(requesterID, ip) {
			log.Ctx(r.Context()).Warn().
				Str("requester_id", requesterID).
				Str("ip", ip).
				Str("path", r.URL.Path).
				Msg("Booking write rate limited")
			w.Header().Set("Retry-After", "2")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
