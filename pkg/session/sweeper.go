package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often the background sweep runs.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically evicts stale sessions on a timer decoupled from any
// single request's lifetime.
type Sweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID
	running  bool
}

// NewSweeper creates a sweeper for store. maxAge <= 0 uses DefaultTTL,
// interval <= 0 uses DefaultSweepInterval.
func NewSweeper(store Store, maxAge, interval time.Duration) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start schedules the periodic sweep.
func (s *Sweeper) Start() error {
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if _, err := s.SweepNow(context.Background()); err != nil {
			log.Error().Err(err).Msg("Session sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.entryID = id
	s.cron.Start()
	s.running = true

	log.Info().
		Dur("max_age", s.maxAge).
		Dur("interval", s.interval).
		Msg("Session sweeper started")

	return nil
}

// Stop halts the periodic sweep.
func (s *Sweeper) Stop() error {
	if !s.running {
		return fmt.Errorf("sweeper is not running")
	}

	s.cron.Remove(s.entryID)
	s.cron.Stop()
	s.running = false

	log.Info().Msg("Session sweeper stopped")
	return nil
}

// SweepNow runs one cleanup pass immediately.
func (s *Sweeper) SweepNow(ctx context.Context) (int, error) {
	return s.store.Cleanup(ctx, s.maxAge)
}

// IsRunning reports whether the sweeper is scheduled.
func (s *Sweeper) IsRunning() bool {
	return s.running
}
