package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/db/dbtest"
	"textilserver/internal/logger"
	"textilserver/internal/models"
	"textilserver/internal/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var userSeq atomic.Int64

type fixture struct {
	gw       *db.Gateway
	now      time.Time
	pricing  config.PricingConfig
	ledger   *LedgerService
	listings *ListingService
	accounts *AccountService
	stats    *StatsService
	search   *SearchService
	expiry   *ExpiryService
	admin    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gw:      dbtest.New(t),
		now:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		pricing: config.Default().Pricing,
	}
	clock := func() time.Time { return f.now }
	log := logger.Nop()

	cache, err := utils.NewCache(64)
	require.NoError(t, err)

	f.ledger = NewLedgerService(f.gw, f.pricing, clock, log)
	f.listings = NewListingService(f.gw, f.ledger, f.pricing, clock, log)
	f.accounts = NewAccountService(f.gw, f.ledger, clock, log)
	f.stats = NewStatsService(f.gw, cache, clock, log)
	f.search = NewSearchService(f.gw, cache, clock)
	f.expiry = NewExpiryService(f.gw, time.Minute, clock, log)
	f.admin = f.createUser(t, models.TierObserver, 0, nil, func(u *models.User) { u.Role = models.RoleAdmin })
	return f
}

// createUser inserts a user and funds it through the ledger so the balance
// and the transaction history agree.
func (f *fixture) createUser(t *testing.T, tier models.Tier, balance int, expiry *time.Time, opts ...func(*models.User)) *models.User {
	t.Helper()
	ctx := context.Background()
	n := userSeq.Add(1)
	u := &models.User{
		Name:             fmt.Sprintf("User %d", n),
		Email:            fmt.Sprintf("user%d@example.com", n),
		Password:         "x",
		City:             "Ivanovo",
		Phone:            "+7 900 000 00 00",
		Tier:             tier,
		Role:             models.RoleUser,
		Status:           models.UserActive,
		ParticipantUntil: expiry,
		CreatedAt:        f.now,
	}
	for _, o := range opts {
		o(u)
	}
	_, err := f.gw.InsertReturningID(ctx, u)
	require.NoError(t, err)

	if balance > 0 {
		admin := &models.User{Role: models.RoleAdmin}
		_, err := f.ledger.Grant(ctx, admin, u.ID, balance, "seed")
		require.NoError(t, err)
		u.BalancePoints = balance
		u.LedgerVersion++
	}
	return u
}

func (f *fixture) reload(t *testing.T, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.gw.FetchByID(context.Background(), &u, id))
	return &u
}

func (f *fixture) requireLedgerBalanced(t *testing.T, userID uint) {
	t.Helper()
	balance, sum, err := f.ledger.Audit(context.Background(), userID)
	require.NoError(t, err)
	require.EqualValues(t, balance, sum, "balance must equal the sum of transactions")
	require.GreaterOrEqual(t, balance, 0)
}

func timePtr(t time.Time) *time.Time { return &t }

// interleaveUserUpdate runs sql inside the caller's transaction right before
// the next UPDATE on users, as another writer committing between our read
// and our conditional write would.
func (f *fixture) interleaveUserUpdate(t *testing.T, sql string, args ...any) {
	t.Helper()
	var fired atomic.Bool
	err := f.gw.DB(context.Background()).Callback().Update().Before("gorm:update").
		Register("test:interleave_user_update", func(tx *gorm.DB) {
			if tx.Statement.Table != "users" || !fired.CompareAndSwap(false, true) {
				return
			}
			if err := tx.Session(&gorm.Session{NewDB: true}).Exec(sql, args...).Error; err != nil {
				_ = tx.AddError(err)
			}
		})
	require.NoError(t, err)
}
