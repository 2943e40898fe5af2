package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"textilserver/internal/db"
	"textilserver/internal/models"
	"textilserver/internal/utils"

	"github.com/rs/zerolog"
)

const MinPasswordLength = 6

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name            string `form:"name" binding:"max=120"`
	Email           string `form:"email" binding:"max=190"`
	Password        string `form:"password" binding:"max=72"`
	PasswordConfirm string `form:"password_confirm"`
	Phone           string `form:"phone" binding:"max=40"`
	City            string `form:"city" binding:"max=120"`
	Company         string `form:"company" binding:"max=190"`
	Position        string `form:"position" binding:"max=120"`
}

type AccountService struct {
	gw     *db.Gateway
	ledger *LedgerService
	now    Clock
	log    zerolog.Logger
}

func NewAccountService(gw *db.Gateway, ledger *LedgerService, now Clock, log zerolog.Logger) *AccountService {
	if now == nil {
		now = SystemClock
	}
	return &AccountService{gw: gw, ledger: ledger, now: now, log: log}
}

// Register creates an active observer account with an empty balance.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	verr := &ValidationError{}

	name := utils.SanitizeInput(in.Name)
	email := utils.NormalizeEmail(in.Email)
	city := utils.SanitizeInput(in.City)

	if name == "" {
		verr.Add("name", "Name is required")
	}
	if email == "" {
		verr.Add("email", "Email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		verr.Add("email", "Email is not valid")
	}
	if in.Password == "" {
		verr.Add("password", "Password is required")
	} else if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	} else if in.Password != in.PasswordConfirm {
		verr.Add("password_confirm", "Passwords do not match")
	}
	if city == "" {
		verr.Add("city", "City is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	taken, err := s.gw.CountWhere(ctx, &models.User{}, "email = ?", email)
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:          name,
		Email:         email,
		Password:      hash,
		Phone:         utils.SanitizeInput(in.Phone),
		City:          city,
		Company:       utils.SanitizeInput(in.Company),
		Position:      utils.SanitizeInput(in.Position),
		Tier:          models.TierObserver,
		Role:          models.RoleUser,
		Status:        models.UserActive,
		BalancePoints: 0,
	}
	if _, err := s.gw.InsertReturningID(ctx, user); err != nil {
		// A concurrent sign-up with the same address loses on the unique index.
		if n, cerr := s.gw.CountWhere(ctx, &models.User{}, "email = ?", email); cerr == nil && n > 0 {
			return nil, ErrEmailTaken
		}
		s.log.Error().Err(err).Str("email", email).Msg("user registration failed")
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Uint("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authenticate checks credentials of an active account. An unknown address,
// a wrong password and a disabled account produce the same error. On success
// an expired membership is downgraded before the user is returned.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.gw.FetchOne(ctx, &user, "email = ?", utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Compare anyway so timing matches a wrong password.
			utils.CheckPasswordHash(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPasswordHash(password, user.Password) || user.Status != models.UserActive {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.ledger.ReconcileTier(ctx, &user); err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.gw.UpdateWhere(ctx, &models.User{}, map[string]any{"last_login": now}, "id = ?", user.ID); err != nil {
		s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to stamp last login")
	} else {
		user.LastLogin = &now
	}
	return &user, nil
}

// Get loads a user by id.
func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.gw.FetchByID(ctx, &user, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetStatus enables or disables an account. Admin only.
func (s *AccountService) SetStatus(ctx context.Context, actor *models.User, id uint, status models.UserStatus) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if actor.ID == id {
		return &ValidationError{Fields: map[string]string{"status": "You cannot change your own status"}}
	}
	n, err := s.gw.UpdateWhere(ctx, &models.User{}, map[string]any{"status": status}, "id = ?", id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	s.log.Info().Uint("user_id", id).Uint("admin_id", actor.ID).Str("status", string(status)).Msg("user status changed")
	return nil
}

// dummyHash is compared against when the address is unknown.
var dummyHash = func() string {
	h, _ := utils.HashPassword(strings.Repeat("x", 16))
	return h
}()
