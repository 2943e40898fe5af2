package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/metrics"
	"textilserver/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LedgerService owns every change to a user's points balance and membership.
// Each change writes the balance and its audit row in one transaction, so the
// sum of a user's transactions always equals the stored balance.
type LedgerService struct {
	gw      *db.Gateway
	pricing config.PricingConfig
	now     Clock
	log     zerolog.Logger
}

func NewLedgerService(gw *db.Gateway, pricing config.PricingConfig, now Clock, log zerolog.Logger) *LedgerService {
	if now == nil {
		now = SystemClock
	}
	return &LedgerService{gw: gw, pricing: pricing, now: now, log: log}
}

func (s *LedgerService) Plans() []config.MembershipPlan {
	return s.pricing.Plans()
}

// ReconcileTier downgrades a paid tier whose membership has run out and
// updates u in place. It is safe to call on every request.
func (s *LedgerService) ReconcileTier(ctx context.Context, u *models.User) (bool, error) {
	return s.reconcileTier(ctx, s.gw, u, s.now())
}

func (s *LedgerService) reconcileTier(ctx context.Context, gw *db.Gateway, u *models.User, now time.Time) (bool, error) {
	if u.Tier == models.TierObserver || u.ParticipantUntil == nil || u.ParticipantUntil.After(now) {
		return false, nil
	}

	n, err := gw.UpdateWhere(ctx, &models.User{},
		map[string]any{"tier": models.TierObserver},
		"id = ? AND tier <> ? AND participant_until IS NOT NULL AND participant_until <= ?",
		u.ID, models.TierObserver, now)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", u.ID).Msg("tier downgrade failed")
		return false, fmt.Errorf("downgrade tier: %w", err)
	}
	u.Tier = models.TierObserver
	if n > 0 {
		metrics.TierDowngrades.Inc()
		s.log.Info().Uint("user_id", u.ID).Time("expired_at", *u.ParticipantUntil).Msg("membership expired, tier downgraded")
	}
	return n > 0, nil
}

// PurchaseMembership spends plan.Cost points and extends the membership by
// plan.Months calendar months, counting from the current expiry when it is
// still in the future and from now otherwise.
func (s *LedgerService) PurchaseMembership(ctx context.Context, userID uint, planID string) (*models.User, error) {
	plan, ok := s.pricing.Plan(planID)
	if !ok {
		return nil, ErrUnknownPlan
	}

	var out models.User
	err := s.gw.Transaction(ctx, func(tx *db.Gateway) error {
		var u models.User
		if err := tx.FetchByID(ctx, &u, userID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		now := s.now()
		if _, err := s.reconcileTier(ctx, tx, &u, now); err != nil {
			return err
		}
		if u.BalancePoints < plan.Cost {
			return &InsufficientPointsError{Required: plan.Cost, Available: u.BalancePoints}
		}

		base := now
		if MembershipActive(u.ParticipantUntil, now) {
			base = *u.ParticipantUntil
		}
		expiry := base.AddDate(0, plan.Months, 0)

		tier := models.TierParticipant

		n, err := tx.UpdateWhere(ctx, &models.User{}, map[string]any{
			"balance_points":    gorm.Expr("balance_points - ?", plan.Cost),
			"participant_until": expiry,
			"tier":              tier,
			"ledger_version":    gorm.Expr("ledger_version + 1"),
		}, "id = ? AND balance_points >= ? AND ledger_version = ?", u.ID, plan.Cost, u.LedgerVersion)
		if err != nil {
			return err
		}
		if n == 0 {
			return s.lostUpdate(ctx, tx, u.ID, plan.Cost)
		}

		balance := u.BalancePoints - plan.Cost
		entry := &models.PointTransaction{
			UserID:       u.ID,
			Type:         models.TxMembershipPurchase,
			Amount:       -plan.Cost,
			Description:  membershipDescription(plan.Months),
			BalanceAfter: balance,
		}
		if _, err := tx.InsertReturningID(ctx, entry); err != nil {
			return err
		}

		u.BalancePoints = balance
		u.ParticipantUntil = &expiry
		u.Tier = tier
		u.LedgerVersion++
		out = u
		return nil
	})
	if err != nil {
		s.record("purchase_membership", err)
		if !isDomainError(err) {
			s.log.Error().Err(err).Uint("user_id", userID).Str("plan", planID).Msg("membership purchase failed")
			return nil, fmt.Errorf("purchase membership: %w", err)
		}
		return nil, err
	}

	s.record("purchase_membership", nil)
	metrics.PointsMoved.WithLabelValues("spent").Add(float64(plan.Cost))
	s.log.Info().Uint("user_id", userID).Str("plan", plan.ID).Int("cost", plan.Cost).
		Time("expires_at", *out.ParticipantUntil).Msg("membership purchased")
	return &out, nil
}

// Debit spends cost points inside an open transaction and appends the audit
// row. The balance never goes negative: the update only applies when the
// balance still covers cost at write time.
func (s *LedgerService) Debit(ctx context.Context, tx *db.Gateway, userID uint, cost int, kind models.TransactionType, description string) (*models.PointTransaction, error) {
	if cost <= 0 {
		return nil, ErrInvalidAmount
	}
	n, err := tx.UpdateWhere(ctx, &models.User{}, map[string]any{
		"balance_points": gorm.Expr("balance_points - ?", cost),
		"ledger_version": gorm.Expr("ledger_version + 1"),
	}, "id = ? AND balance_points >= ?", userID, cost)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, s.lostUpdate(ctx, tx, userID, cost)
	}

	var u models.User
	if err := tx.FetchByID(ctx, &u, userID); err != nil {
		return nil, err
	}
	entry := &models.PointTransaction{
		UserID:       userID,
		Type:         kind,
		Amount:       -cost,
		Description:  description,
		BalanceAfter: u.BalancePoints,
	}
	if _, err := tx.InsertReturningID(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Grant credits points to a user. Only administrators may grant.
func (s *LedgerService) Grant(ctx context.Context, actor *models.User, userID uint, amount int, note string) (*models.PointTransaction, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if note == "" {
		note = "Points top-up"
	}
	note = truncateDescription(note)

	var entry *models.PointTransaction
	err := s.gw.Transaction(ctx, func(tx *db.Gateway) error {
		n, err := tx.UpdateWhere(ctx, &models.User{}, map[string]any{
			"balance_points": gorm.Expr("balance_points + ?", amount),
			"ledger_version": gorm.Expr("ledger_version + 1"),
		}, "id = ?", userID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}

		var u models.User
		if err := tx.FetchByID(ctx, &u, userID); err != nil {
			return err
		}
		entry = &models.PointTransaction{
			UserID:       userID,
			Type:         models.TxAdminGrant,
			Amount:       amount,
			Description:  note,
			BalanceAfter: u.BalancePoints,
		}
		_, err = tx.InsertReturningID(ctx, entry)
		return err
	})
	s.record("grant", err)
	if err != nil {
		if !isDomainError(err) {
			s.log.Error().Err(err).Uint("user_id", userID).Msg("points grant failed")
			return nil, fmt.Errorf("grant points: %w", err)
		}
		return nil, err
	}

	metrics.PointsMoved.WithLabelValues("issued").Add(float64(amount))
	s.log.Info().Uint("admin_id", actor.ID).Uint("user_id", userID).Int("amount", amount).Msg("points granted")
	return entry, nil
}

// History returns the latest ledger rows of a user, newest first.
// limit <= 0 returns everything.
func (s *LedgerService) History(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	var rows []models.PointTransaction
	err := s.gw.LatestBy(ctx, &rows, limit, "created_at DESC, id DESC", "user_id = ?", userID)
	return rows, err
}

// Audit returns the stored balance next to the sum of the user's ledger.
func (s *LedgerService) Audit(ctx context.Context, userID uint) (balance int, sum int64, err error) {
	var u models.User
	if err = s.gw.FetchByID(ctx, &u, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, 0, ErrUserNotFound
		}
		return 0, 0, err
	}
	sum, err = s.gw.SumWhere(ctx, &models.PointTransaction{}, "amount", "user_id = ?", userID)
	return u.BalancePoints, sum, err
}

// lostUpdate explains a conditional update that matched no row.
func (s *LedgerService) lostUpdate(ctx context.Context, tx *db.Gateway, userID uint, cost int) error {
	var cur models.User
	if err := tx.FetchByID(ctx, &cur, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if cur.BalancePoints < cost {
		return &InsufficientPointsError{Required: cost, Available: cur.BalancePoints}
	}
	return ErrConcurrentModification
}

func (s *LedgerService) record(op string, err error) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientPoints):
		result = metrics.ResultInsufficient
	case errors.Is(err, ErrConcurrentModification):
		result = metrics.ResultConflict
	default:
		result = metrics.ResultError
	}
	metrics.LedgerOperations.WithLabelValues(op, result).Inc()
}

// descriptionMaxRunes matches the size of point_transactions.description.
const descriptionMaxRunes = 255

func truncateDescription(d string) string {
	if utf8.RuneCountInString(d) > descriptionMaxRunes {
		return string([]rune(d)[:descriptionMaxRunes-3]) + "..."
	}
	return d
}

func membershipDescription(months int) string {
	if months == 1 {
		return "Membership for 1 month"
	}
	return fmt.Sprintf("Membership for %d months", months)
}

// isDomainError separates expected outcomes from storage failures.
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInsufficientPoints, ErrMembershipRequired, ErrUnknownPlan, ErrConcurrentModification,
		ErrUserNotFound, ErrListingNotFound, ErrForbidden, ErrInvalidAmount, ErrEmailTaken,
		ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return IsValidation(err)
}
