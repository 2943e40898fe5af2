package services

import (
	"context"
	"testing"

	"textilserver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := member(t, f, 300)
	old := f.createUser(t, models.TierObserver, 0, nil, func(u *models.User) {
		u.CreatedAt = f.now.AddDate(0, 0, -3)
		u.Status = models.UserSuspended
	})
	_, err := f.listings.Create(ctx, u.ID, validInput())
	require.NoError(t, err)
	_, err = f.ledger.PurchaseMembership(ctx, u.ID, "1month")
	require.NoError(t, err)

	d, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 3, d.UsersTotal)
	assert.EqualValues(t, 2, d.UsersActive)
	assert.EqualValues(t, 2, d.UsersNewToday, "the back-dated account is not new")
	assert.EqualValues(t, 1, d.ListingsTotal)
	assert.EqualValues(t, 1, d.ListingsActive)
	assert.EqualValues(t, 1, d.ListingsNewToday)
	assert.EqualValues(t, 300, d.PointsIssued)
	assert.EqualValues(t, 20+f.pricing.MembershipPlans["1month"].Cost, d.PointsSpent)
	assert.True(t, f.now.Equal(d.GeneratedAt))

	require.Len(t, d.LatestListings, 1)
	assert.Equal(t, u.Name, d.LatestListings[0].UserName)
	require.Len(t, d.LatestTransactions, 3)
	for _, tx := range d.LatestTransactions {
		assert.Equal(t, u.Name, tx.UserName)
	}
	require.Len(t, d.LatestUsers, 3)
	assert.Equal(t, old.ID, d.LatestUsers[2].ID)
}

func TestDashboardIsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.UsersTotal)

	f.createUser(t, models.TierObserver, 0, nil)

	d, err = f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.UsersTotal, "served from cache")

	f.stats.Invalidate()
	d, err = f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.UsersTotal)
}
