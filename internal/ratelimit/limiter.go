package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
)

var tierDefaults = map[domain.Tier]domain.RateLimits{
	domain.TierStandard:  {PerMinute: 60, PerHour: 1000, Burst: 10},
	domain.TierStrategic: {PerMinute: 300, PerHour: 10000, Burst: 50},
	domain.TierInternal:  {PerMinute: 1000, PerHour: 50000, Burst: 100},
}

// TierDefaults returns the limits of a tier. Unknown tiers get STANDARD limits.
func TierDefaults(tier domain.Tier) domain.RateLimits {
	if l, ok := tierDefaults[tier]; ok {
		return l
	}
	return tierDefaults[domain.TierStandard]
}

// Resolve returns the effective limits of a partner: tier defaults with non-zero overrides applied per field.
func Resolve(p *domain.Partner) domain.RateLimits {
	limits := TierDefaults(p.Tier)
	if o := p.RateLimits; o != nil {
		if o.PerMinute > 0 {
			limits.PerMinute = o.PerMinute
		}
		if o.PerHour > 0 {
			limits.PerHour = o.PerHour
		}
		if o.Burst > 0 {
			limits.Burst = o.Burst
		}
	}
	return limits
}

func limitFor(l domain.RateLimits, w Window) int {
	switch w {
	case WindowBurst:
		return l.Burst
	case WindowMinute:
		return l.PerMinute
	case WindowHour:
		return l.PerHour
	}
	return 0
}

// Decision is the outcome of one Allow call.
// When allowed, Limit/Remaining/ResetAt describe the minute window after the increment.
// When rejected, they describe the first violated window.
type Decision struct {
	Allowed    bool
	Window     Window
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum 1.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter applies burst, minute and hour windows per partner.
type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow checks every window in order and, only if none is exhausted, counts the request in all of them.
// A rejected request consumes no quota.
func (l *Limiter) Allow(partnerID uuid.UUID, limits domain.RateLimits) Decision {
	now := l.now()
	var decision Decision

	l.store.Update(partnerID.String(), func(states map[Window]WindowState) {
		next := make(map[Window]WindowState, len(windows))

		for _, w := range windows {
			st, ok := states[w]
			if !ok || !now.Before(st.ResetAt) {
				st = WindowState{Count: 0, ResetAt: now.Add(w.Duration())}
			}

			limit := limitFor(limits, w)
			if limit > 0 && st.Count >= limit {
				decision = Decision{
					Window:     w,
					Limit:      limit,
					Remaining:  0,
					ResetAt:    st.ResetAt,
					RetryAfter: st.ResetAt.Sub(now),
				}
				return
			}

			st.Count++
			next[w] = st
		}

		for w, st := range next {
			states[w] = st
		}

		minute := next[WindowMinute]
		remaining := limits.PerMinute - minute.Count
		if remaining < 0 {
			remaining = 0
		}
		decision = Decision{
			Allowed:   true,
			Window:    WindowMinute,
			Limit:     limits.PerMinute,
			Remaining: remaining,
			ResetAt:   minute.ResetAt,
		}
	})

	return decision
}

// Sweeper periodically purges ended windows from a Store.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(store Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: store, interval: interval, logger: logger.With("component", "rate_limit_sweeper")}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("rate limit sweeper started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rate limit sweeper stopped")
			return
		case now := <-ticker.C:
			if removed := s.store.Sweep(now); removed > 0 {
				s.logger.Debug("swept rate limit windows", slog.Int("keys", removed))
			}
		}
	}
}
