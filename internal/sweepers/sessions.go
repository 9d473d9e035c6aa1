package sweepers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// IdleEvicter drops entries untouched for longer than a ttl
type IdleEvicter interface {
	EvictIdle(ttl time.Duration) int
}

// Target is one per-session store swept by a SessionSweeper
type Target struct {
	Name    string
	Evicter IdleEvicter
}

// SessionSweeper periodically evicts abandoned session state (carts,
// assistant conversations)
type SessionSweeper struct {
	targets  []Target
	logger   *zerolog.Logger
	interval time.Duration
	ttl      time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSessionSweeper creates a sweeper that evicts entries idle for longer than ttl
func NewSessionSweeper(logger *zerolog.Logger, interval, ttl time.Duration, targets ...Target) *SessionSweeper {
	return &SessionSweeper{
		targets:  targets,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (s *SessionSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("ttl", s.ttl).
		Int("targets", len(s.targets)).
		Msg("Starting session sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Session sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Session sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Stop signals the sweeper to stop
func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep runs one eviction pass over every target and returns the number of
// entries removed
func (s *SessionSweeper) Sweep() int {
	total := 0
	for _, t := range s.targets {
		removed := t.Evicter.EvictIdle(s.ttl)
		if removed > 0 {
			s.logger.Info().
				Str("target", t.Name).
				Int("evicted", removed).
				Msg("Evicted idle sessions")
		}
		total += removed
	}
	return total
}
