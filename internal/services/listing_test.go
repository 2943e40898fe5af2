package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"textilserver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ListingInput {
	return ListingInput{
		Title:       "Cotton poplin, 150 cm",
		Description: "Dyed cotton poplin from stock.",
		Type:        string(models.ListingReadyProducts),
		Price:       "320,50",
		Currency:    "RUB",
		Location:    "Ivanovo",
	}
}

func member(t *testing.T, f *fixture, balance int) *models.User {
	return f.createUser(t, models.TierParticipant, balance, timePtr(f.now.AddDate(0, 1, 0)))
}

func TestListingCost(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 20, f.listings.Cost(false, false))
	assert.Equal(t, 70, f.listings.Cost(true, false))
	assert.Equal(t, 50, f.listings.Cost(false, true))
	assert.Equal(t, 100, f.listings.Cost(true, true))
}

func TestCreateListingChargesAndStores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 200)

	in := validInput()
	in.IsTop = true
	in.IsFeatured = true
	l, err := f.listings.Create(ctx, u.ID, in)
	require.NoError(t, err)

	assert.NotZero(t, l.ID)
	assert.Equal(t, models.ListingActive, l.Status)
	assert.True(t, f.now.Add(30*24*time.Hour).Equal(l.ExpiresAt))
	require.NotNil(t, l.Price)
	assert.InDelta(t, 320.5, *l.Price, 0.001)
	assert.Equal(t, u.Name, l.ContactPerson, "contacts default to the owner")
	assert.Equal(t, u.Email, l.ContactEmail)

	assert.Equal(t, 100, f.reload(t, u.ID).BalancePoints)

	history, err := f.ledger.History(ctx, u.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TxListingCreation, history[0].Type)
	assert.Equal(t, -100, history[0].Amount)
	assert.Equal(t, "Listing placement: Cotton poplin, 150 cm", history[0].Description)
	f.requireLedgerBalanced(t, u.ID)
}

func TestCreateListingRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	observer := f.createUser(t, models.TierObserver, 500, nil)
	_, err := f.listings.Create(ctx, observer.ID, validInput())
	assert.ErrorIs(t, err, ErrMembershipRequired)

	lapsed := f.createUser(t, models.TierParticipant, 500, timePtr(f.now.Add(-time.Second)))
	_, err = f.listings.Create(ctx, lapsed.ID, validInput())
	assert.ErrorIs(t, err, ErrMembershipRequired)
	assert.Equal(t, models.TierObserver, f.reload(t, lapsed.ID).Tier, "lapsed tier is downgraded on the way")

	n, err := f.gw.CountWhere(ctx, &models.Listing{}, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateListingInsufficientForAddons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 60)

	in := validInput()
	in.IsTop = true
	_, err := f.listings.Create(ctx, u.ID, in)
	var ipe *InsufficientPointsError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, 70, ipe.Required)
	assert.Equal(t, 60, ipe.Available)

	assert.Equal(t, 60, f.reload(t, u.ID).BalancePoints)
	n, err := f.gw.CountWhere(ctx, &models.Listing{}, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateListingBalanceDrainedBeforeDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 100)
	f.interleaveUserUpdate(t, "UPDATE users SET balance_points = 0 WHERE id = ?", u.ID)

	_, err := f.listings.Create(ctx, u.ID, validInput())
	require.ErrorIs(t, err, ErrInsufficientPoints)
	var ipe *InsufficientPointsError
	require.True(t, errors.As(err, &ipe))
	assert.Equal(t, 20, ipe.Required)
	assert.Zero(t, ipe.Available)

	count, err := f.gw.CountWhere(ctx, &models.Listing{}, "user_id = ?", u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 100, f.reload(t, u.ID).BalancePoints)
	f.requireLedgerBalanced(t, u.ID)
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 200)

	in := ListingInput{
		Title:        "  <b></b> ",
		Type:         "cars",
		Currency:     "GBP",
		Price:        "-5",
		CategoryID:   "9999",
		ContactEmail: "not-an-email",
	}
	_, err := f.listings.Create(ctx, u.ID, in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"title", "description", "location", "type", "currency", "price", "category_id", "contact_email"} {
		assert.Contains(t, verr.Fields, field)
	}

	assert.Equal(t, 200, f.reload(t, u.ID).BalancePoints, "nothing charged")
}

func TestCreateListingJobsFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 200)

	in := validInput()
	in.SalaryFrom = "50000"
	in.EmploymentType = "full_time"
	l, err := f.listings.Create(ctx, u.ID, in)
	require.NoError(t, err)
	assert.Nil(t, l.SalaryFrom, "jobs-only fields are dropped for other types")
	assert.Nil(t, l.EmploymentType)

	in.Type = string(models.ListingJobs)
	in.SalaryTo = "80000"
	in.ExperienceRequired = "1_3_years"
	l, err = f.listings.Create(ctx, u.ID, in)
	require.NoError(t, err)
	require.NotNil(t, l.SalaryFrom)
	assert.InDelta(t, 50000, *l.SalaryFrom, 0.001)
	require.NotNil(t, l.EmploymentType)
	assert.Equal(t, models.EmploymentFullTime, *l.EmploymentType)
	require.NotNil(t, l.ExperienceRequired)
	assert.Equal(t, models.Experience1To3, *l.ExperienceRequired)

	stored, err := f.listings.Get(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.EmploymentType)
	assert.Equal(t, models.EmploymentFullTime, *stored.EmploymentType)

	in.SalaryFrom, in.SalaryTo = "90000", "10000"
	_, err = f.listings.Create(ctx, u.ID, in)
	assert.True(t, IsValidation(err))

	in.SalaryFrom, in.SalaryTo = "", ""
	in.EmploymentType = "slavery"
	_, err = f.listings.Create(ctx, u.ID, in)
	assert.True(t, IsValidation(err))
}

func TestCreateListingRollsBackWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 200)

	_, err := f.gw.Exec(ctx, "DROP TABLE listings")
	require.NoError(t, err)

	_, err = f.listings.Create(ctx, u.ID, validInput())
	require.Error(t, err)

	assert.Equal(t, 200, f.reload(t, u.ID).BalancePoints)
	history, err := f.ledger.History(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "only the seed grant")
	f.requireLedgerBalanced(t, u.ID)
}

func TestListPublicAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 1000)

	plain, err := f.listings.Create(ctx, u.ID, validInput())
	require.NoError(t, err)
	topIn := validInput()
	topIn.IsTop = true
	top, err := f.listings.Create(ctx, u.ID, topIn)
	require.NoError(t, err)
	hidden, err := f.listings.Create(ctx, u.ID, validInput())
	require.NoError(t, err)
	require.NoError(t, f.listings.SetStatus(ctx, f.admin, hidden.ID, models.ListingInactive))

	rows, total, err := f.listings.ListPublic(ctx, ListingFilter{Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, top.ID, rows[0].ID)
	assert.Equal(t, plain.ID, rows[1].ID)

	rows, _, err = f.listings.ListPublic(ctx, ListingFilter{Type: models.ListingJobs, Page: 1})
	require.NoError(t, err)
	assert.Empty(t, rows)

	all, active, err := f.listings.CountByOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all)
	assert.EqualValues(t, 2, active)

	f.now = f.now.Add(31 * 24 * time.Hour)
	rows, _, err = f.listings.ListPublic(ctx, ListingFilter{Page: 1})
	require.NoError(t, err)
	assert.Empty(t, rows, "expired listings are hidden before any sweep")
}

func TestSetStatusRequiresModerator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := member(t, f, 100)
	l, err := f.listings.Create(ctx, u.ID, validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.listings.SetStatus(ctx, u, l.ID, models.ListingInactive), ErrForbidden)

	editor := f.createUser(t, models.TierObserver, 0, nil, func(u *models.User) { u.Role = models.RoleContentEditor })
	require.NoError(t, f.listings.SetStatus(ctx, editor, l.ID, models.ListingSold))
	got, err := f.listings.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, got.Status)

	assert.ErrorIs(t, f.listings.SetStatus(ctx, editor, 9999, models.ListingSold), ErrListingNotFound)
}

func TestEffectiveStatusAndLabels(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	l := &models.Listing{Status: models.ListingActive, ExpiresAt: now}
	assert.Equal(t, models.ListingExpired, EffectiveStatus(l, now))

	l.ExpiresAt = now.Add(time.Second)
	assert.Equal(t, models.ListingActive, EffectiveStatus(l, now))

	l.Status = models.ListingSold
	l.ExpiresAt = now.Add(-time.Hour)
	assert.Equal(t, models.ListingSold, EffectiveStatus(l, now))

	assert.Equal(t, "Active", StatusLabel("active"))
	assert.Equal(t, "Pending review", StatusLabel("pending"))
	assert.Equal(t, "Inactive", StatusLabel("inactive"))
	assert.Equal(t, "archived", StatusLabel("archived"))
}

func TestCategoriesSeeded(t *testing.T) {
	f := newFixture(t)
	cats, err := f.listings.Categories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
	assert.Equal(t, "fabrics", cats[0].Slug)
}
