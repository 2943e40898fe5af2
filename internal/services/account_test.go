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

func signupInput(email string) RegisterInput {
	return RegisterInput{
		Name:            "Anna Petrova",
		Email:           email,
		Password:        "secret1",
		PasswordConfirm: "secret1",
		City:            "Ivanovo",
		Company:         "Textile Mill",
	}
}

func TestRegisterCreatesObserver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, signupInput("  Anna@Example.com "))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "anna@example.com", u.Email)
	assert.Equal(t, models.TierObserver, u.Tier)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, models.UserActive, u.Status)
	assert.Zero(t, u.BalancePoints)
	assert.Nil(t, u.ParticipantUntil)
	assert.NotEqual(t, "secret1", u.Password)

	stored := f.reload(t, u.ID)
	assert.Equal(t, u.Password, stored.Password)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, signupInput("anna@example.com"))
	require.NoError(t, err)

	_, err = f.accounts.Register(ctx, signupInput("ANNA@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(*RegisterInput)
		field string
	}{
		{"missing name", func(in *RegisterInput) { in.Name = " " }, "name"},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, "email"},
		{"bad email", func(in *RegisterInput) { in.Email = "anna at example" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.PasswordConfirm = "abc", "abc" }, "password"},
		{"mismatch", func(in *RegisterInput) { in.PasswordConfirm = "secret2" }, "password_confirm"},
		{"missing city", func(in *RegisterInput) { in.City = "" }, "city"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := signupInput("valid@example.com")
			tt.edit(&in)
			_, err := f.accounts.Register(ctx, in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	n, err := f.gw.CountWhere(ctx, &models.User{}, "email = ?", "valid@example.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, signupInput("anna@example.com"))
	require.NoError(t, err)

	got, err := f.accounts.Authenticate(ctx, "Anna@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.LastLogin)
	assert.True(t, f.now.Equal(*got.LastLogin))
	require.NotNil(t, f.reload(t, u.ID).LastLogin)

	_, err = f.accounts.Authenticate(ctx, "anna@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.accounts.Authenticate(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.accounts.SetStatus(ctx, f.admin, u.ID, models.UserSuspended))
	_, err = f.accounts.Authenticate(ctx, "anna@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "a disabled account looks like bad credentials")
}

func TestAuthenticateDowngradesLapsedMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, signupInput("anna@example.com"))
	require.NoError(t, err)
	_, err = f.gw.UpdateWhere(ctx, &models.User{}, map[string]any{
		"tier":              models.TierParticipant,
		"participant_until": f.now.Add(-time.Hour),
	}, "id = ?", u.ID)
	require.NoError(t, err)

	got, err := f.accounts.Authenticate(ctx, "anna@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.TierObserver, got.Tier)
	assert.Equal(t, models.TierObserver, f.reload(t, u.ID).Tier)
}

func TestSetUserStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, models.TierObserver, 0, nil)

	assert.ErrorIs(t, f.accounts.SetStatus(ctx, u, f.admin.ID, models.UserBlocked), ErrForbidden)
	assert.True(t, IsValidation(f.accounts.SetStatus(ctx, f.admin, f.admin.ID, models.UserBlocked)))
	assert.ErrorIs(t, f.accounts.SetStatus(ctx, f.admin, 9999, models.UserBlocked), ErrUserNotFound)

	require.NoError(t, f.accounts.SetStatus(ctx, f.admin, u.ID, models.UserBlocked))
	assert.Equal(t, models.UserBlocked, f.reload(t, u.ID).Status)

	_, err := f.accounts.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
