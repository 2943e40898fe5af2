package services

import (
	"context"
	"sync"
	"time"

	"textilserver/internal/db"
	"textilserver/internal/metrics"
	"textilserver/internal/models"

	"github.com/rs/zerolog"
)

// SweepResult counts what one sweep changed.
type SweepResult struct {
	UsersDowngraded int64
	ListingsExpired int64
}

// ExpiryService persists expirations in the background. Reads already treat
// expired memberships and listings correctly without it; the sweep only keeps
// stored state and admin counts in line.
type ExpiryService struct {
	gw       *db.Gateway
	interval time.Duration
	now      Clock
	log      zerolog.Logger
	mu       sync.Mutex
}

func NewExpiryService(gw *db.Gateway, interval time.Duration, now Clock, log zerolog.Logger) *ExpiryService {
	if now == nil {
		now = SystemClock
	}
	return &ExpiryService{gw: gw, interval: interval, now: now, log: log}
}

// Sweep downgrades lapsed memberships and closes lapsed listings.
func (s *ExpiryService) Sweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var res SweepResult

	n, err := s.gw.UpdateWhere(ctx, &models.User{},
		map[string]any{"tier": models.TierObserver},
		"tier <> ? AND participant_until IS NOT NULL AND participant_until <= ?",
		models.TierObserver, now)
	if err != nil {
		return res, err
	}
	res.UsersDowngraded = n
	metrics.TierDowngrades.Add(float64(n))

	n, err = s.gw.UpdateWhere(ctx, &models.Listing{},
		map[string]any{"status": models.ListingExpired},
		"status = ? AND expires_at <= ?", models.ListingActive, now)
	if err != nil {
		return res, err
	}
	res.ListingsExpired = n
	metrics.ListingsExpired.Add(float64(n))

	if res.UsersDowngraded > 0 || res.ListingsExpired > 0 {
		s.log.Info().
			Int64("users_downgraded", res.UsersDowngraded).
			Int64("listings_expired", res.ListingsExpired).
			Msg("expiry sweep completed")
	}
	return res, nil
}

// Run sweeps on every tick until ctx is done. A zero interval disables it.
func (s *ExpiryService) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}
