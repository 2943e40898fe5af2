package services

import (
	"context"
	"fmt"
	"time"

	"textilserver/internal/db"
	"textilserver/internal/models"
	"textilserver/internal/utils"

	"github.com/rs/zerolog"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardTTL      = 30 * time.Second
	dashboardLatest   = 10
)

// Dashboard is the admin overview.
type Dashboard struct {
	UsersTotal       int64
	UsersActive      int64
	UsersNewToday    int64
	ListingsTotal    int64
	ListingsActive   int64
	ListingsNewToday int64
	CompaniesTotal   int64
	CompaniesActive  int64
	PointsIssued     int64
	PointsSpent      int64

	LatestUsers        []models.User
	LatestListings     []models.ListingWithUser
	LatestTransactions []models.TransactionWithUser

	GeneratedAt time.Time
}

type StatsService struct {
	gw    *db.Gateway
	cache *utils.Cache
	now   Clock
	log   zerolog.Logger
}

func NewStatsService(gw *db.Gateway, cache *utils.Cache, now Clock, log zerolog.Logger) *StatsService {
	if now == nil {
		now = SystemClock
	}
	return &StatsService{gw: gw, cache: cache, now: now, log: log}
}

// Dashboard returns the overview, recomputed at most every 30 seconds.
func (s *StatsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	return utils.Cached(s.cache, dashboardCacheKey, dashboardTTL, func() (*Dashboard, error) {
		d, err := s.compute(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("dashboard statistics failed")
		}
		return d, err
	})
}

// Invalidate drops the cached overview, e.g. after a moderation action.
func (s *StatsService) Invalidate() {
	if s.cache != nil {
		s.cache.Delete(dashboardCacheKey)
	}
}

func (s *StatsService) compute(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	d := &Dashboard{GeneratedAt: now}

	counts := []struct {
		dst   *int64
		model any
		query string
		args  []any
	}{
		{&d.UsersTotal, &models.User{}, "", nil},
		{&d.UsersActive, &models.User{}, "status = ?", []any{models.UserActive}},
		{&d.UsersNewToday, &models.User{}, "created_at >= ?", []any{startOfDay}},
		{&d.ListingsTotal, &models.Listing{}, "", nil},
		{&d.ListingsActive, &models.Listing{}, "status = ? AND expires_at > ?", []any{models.ListingActive, now}},
		{&d.ListingsNewToday, &models.Listing{}, "created_at >= ?", []any{startOfDay}},
		{&d.CompaniesTotal, &models.Company{}, "", nil},
		{&d.CompaniesActive, &models.Company{}, "status = ?", []any{"active"}},
	}
	for _, c := range counts {
		n, err := s.gw.CountWhere(ctx, c.model, c.query, c.args...)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		*c.dst = n
	}

	var err error
	if d.PointsIssued, err = s.gw.SumWhere(ctx, &models.PointTransaction{}, "amount", "amount > 0"); err != nil {
		return nil, fmt.Errorf("points issued: %w", err)
	}
	if d.PointsSpent, err = s.gw.SumWhere(ctx, &models.PointTransaction{}, "ABS(amount)", "amount < 0"); err != nil {
		return nil, fmt.Errorf("points spent: %w", err)
	}

	if err := s.gw.LatestBy(ctx, &d.LatestUsers, dashboardLatest, "created_at DESC, id DESC", ""); err != nil {
		return nil, fmt.Errorf("latest users: %w", err)
	}
	err = s.gw.DB(ctx).Model(&models.Listing{}).
		Select("listings.*, users.name AS user_name").
		Joins("JOIN users ON users.id = listings.user_id").
		Order("listings.created_at DESC, listings.id DESC").
		Limit(dashboardLatest).
		Scan(&d.LatestListings).Error
	if err != nil {
		return nil, fmt.Errorf("latest listings: %w", err)
	}
	err = s.gw.DB(ctx).Model(&models.PointTransaction{}).
		Select("point_transactions.*, users.name AS user_name").
		Joins("JOIN users ON users.id = point_transactions.user_id").
		Order("point_transactions.created_at DESC, point_transactions.id DESC").
		Limit(dashboardLatest).
		Scan(&d.LatestTransactions).Error
	if err != nil {
		return nil, fmt.Errorf("latest transactions: %w", err)
	}

	return d, nil
}
