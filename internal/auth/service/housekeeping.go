package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/jonboulle/clockwork"
)

// HousekeepingService periodically clears pending resets that are past
// their validity window. Expiry is still enforced by CheckToken; the sweep
// only keeps stale tokens from lingering in the store.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Interval time.Duration
	TTL      time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a sweeper. If interval is 0 or negative,
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, clock clockwork.Clock, interval, ttl time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Clock:    clock,
		Interval: interval,
		TTL:      ttl,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the sweeper in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.Chan():
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep clears every pending reset that CheckToken would already reject as
// expired and returns how many were cleared.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	// A token is expired once its whole-minute age exceeds the TTL, i.e.
	// once it is at least TTL+1 minutes old.
	cutoff := s.Clock.Now().UTC().Add(-(s.TTL.Truncate(time.Minute) + time.Minute))

	cleared, err := s.Store.Users().ClearExpiredResets(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to clear expired reset tokens", "error", err)
		return 0
	}

	s.Logger.Info("housekeeping cleanup completed", "cleared_resets", cleared)
	return cleared
}
