package services

import (
	"context"
	"testing"
	"time"

	"textilserver/internal/logger"
	"textilserver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepPersistsExpirations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := member(t, f, 100)
	l, err := f.listings.Create(ctx, u.ID, validInput())
	require.NoError(t, err)
	lapsed := f.createUser(t, models.TierLeader, 0, timePtr(f.now))
	current := f.createUser(t, models.TierParticipant, 0, timePtr(f.now.Add(time.Hour)))

	res, err := f.expiry.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.UsersDowngraded, "expiry equal to now counts as lapsed")
	assert.Zero(t, res.ListingsExpired)
	assert.Equal(t, models.TierObserver, f.reload(t, lapsed.ID).Tier)
	assert.Equal(t, models.TierParticipant, f.reload(t, current.ID).Tier)

	f.now = l.ExpiresAt
	res, err = f.expiry.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ListingsExpired)
	assert.EqualValues(t, 1, res.UsersDowngraded, "only the one-hour membership lapsed")
	assert.Equal(t, models.TierParticipant, f.reload(t, u.ID).Tier)

	got, err := f.listings.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingExpired, got.Status)

	res, err = f.expiry.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.UsersDowngraded)
	assert.Zero(t, res.ListingsExpired)
}

func TestRunStopsWithContext(t *testing.T) {
	f := newFixture(t)

	disabled := NewExpiryService(f.gw, 0, nil, logger.Nop())
	done := make(chan struct{})
	go func() {
		disabled.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return at once")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewExpiryService(f.gw, 10*time.Millisecond, nil, logger.Nop())
	done = make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
