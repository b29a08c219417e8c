package verify

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts expired codes so abandoned verification
// attempts do not accumulate for the full TTL plus map lifetime.
type Sweeper struct {
	cache  *Cache
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper schedules a sweep of cache on the given cron spec
// (e.g. "@hourly"). Start must be called to begin sweeping.
func NewSweeper(cache *Cache, spec string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		cache:  cache,
		cron:   cron.New(),
		logger: logger.With("component", "verify.sweeper"),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) sweep() {
	if removed := s.cache.Sweep(); removed > 0 {
		s.logger.Debug("swept expired verification codes", "removed", removed)
	}
}

// Start begins the sweep schedule in its own goroutine.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule; a sweep already in flight runs to completion.
func (s *Sweeper) Stop() { s.cron.Stop() }
