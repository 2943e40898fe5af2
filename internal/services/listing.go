package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"textilserver/internal/config"
	"textilserver/internal/db"
	"textilserver/internal/metrics"
	"textilserver/internal/models"
	"textilserver/internal/utils"

	"github.com/rs/zerolog"
)

const ListingsPerPage = 20

// ListingInput is the listing form as submitted.
type ListingInput struct {
	Title              string `form:"title" binding:"max=255"`
	Description        string `form:"description" binding:"max=20000"`
	Type               string `form:"type"`
	CategoryID         string `form:"category_id"`
	Price              string `form:"price"`
	Currency           string `form:"currency"`
	Location           string `form:"location" binding:"max=190"`
	ContactPerson      string `form:"contact_person" binding:"max=120"`
	ContactPhone       string `form:"contact_phone" binding:"max=40"`
	ContactEmail       string `form:"contact_email" binding:"max=190"`
	SalaryFrom         string `form:"salary_from"`
	SalaryTo           string `form:"salary_to"`
	EmploymentType     string `form:"employment_type"`
	ExperienceRequired string `form:"experience_required"`
	IsTop              bool   `form:"is_top"`
	IsFeatured         bool   `form:"is_featured"`
}

// ListingFilter narrows the public catalogue. An empty Type matches all.
type ListingFilter struct {
	Type models.ListingType
	Page int
}

type ListingService struct {
	gw      *db.Gateway
	ledger  *LedgerService
	pricing config.PricingConfig
	now     Clock
	log     zerolog.Logger
}

func NewListingService(gw *db.Gateway, ledger *LedgerService, pricing config.PricingConfig, now Clock, log zerolog.Logger) *ListingService {
	if now == nil {
		now = SystemClock
	}
	return &ListingService{gw: gw, ledger: ledger, pricing: pricing, now: now, log: log}
}

// Cost is the placement price: the base price plus each selected add-on.
func (s *ListingService) Cost(isTop, isFeatured bool) int {
	cost := s.pricing.ListingCost
	if isTop {
		cost += s.pricing.TopAddonCost
	}
	if isFeatured {
		cost += s.pricing.FeaturedAddonCost
	}
	return cost
}

func (s *ListingService) BaseCost() int { return s.pricing.ListingCost }

// CanCreate reports whether u may open the listing form right now.
func (s *ListingService) CanCreate(u *models.User) bool {
	return CanCreateListing(u.Tier, u.BalancePoints, u.ParticipantUntil, s.pricing.ListingCost, s.now())
}

// Create validates in, charges the owner and stores the listing. The charge,
// the listing and the ledger row are written together or not at all.
func (s *ListingService) Create(ctx context.Context, userID uint, in ListingInput) (*models.Listing, error) {
	var owner models.User
	if err := s.gw.FetchByID(ctx, &owner, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if _, err := s.ledger.ReconcileTier(ctx, &owner); err != nil {
		return nil, err
	}

	now := s.now()
	if !CanAccessGatedContent(owner.Tier, owner.ParticipantUntil, now) {
		return nil, ErrMembershipRequired
	}
	if owner.BalancePoints < s.pricing.ListingCost {
		return nil, &InsufficientPointsError{Required: s.pricing.ListingCost, Available: owner.BalancePoints}
	}

	listing, err := s.build(ctx, &owner, in)
	if err != nil {
		return nil, err
	}
	listing.Status = models.ListingActive
	listing.ExpiresAt = now.Add(s.pricing.ListingLifetime)
	listing.CreatedAt = now

	cost := s.Cost(listing.IsTop, listing.IsFeatured)
	if owner.BalancePoints < cost {
		return nil, &InsufficientPointsError{Required: cost, Available: owner.BalancePoints}
	}

	err = s.gw.Transaction(ctx, func(tx *db.Gateway) error {
		if _, err := s.ledger.Debit(ctx, tx, owner.ID, cost, models.TxListingCreation, placementDescription(listing.Title)); err != nil {
			return err
		}
		_, err := tx.InsertReturningID(ctx, listing)
		return err
	})
	s.ledger.record("listing_creation", err)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		s.log.Error().Err(err).Uint("user_id", userID).Msg("listing creation failed")
		return nil, fmt.Errorf("create listing: %w", err)
	}

	metrics.ListingsCreated.WithLabelValues(string(listing.Type)).Inc()
	metrics.PointsMoved.WithLabelValues("spent").Add(float64(cost))
	s.log.Info().Uint("user_id", userID).Uint("listing_id", listing.ID).Int("cost", cost).Msg("listing created")
	return listing, nil
}

// build turns the raw form into a listing, collecting every input problem.
func (s *ListingService) build(ctx context.Context, owner *models.User, in ListingInput) (*models.Listing, error) {
	verr := &ValidationError{}

	l := &models.Listing{
		UserID:        owner.ID,
		Title:         utils.SanitizeInput(in.Title),
		Description:   utils.SanitizeInput(in.Description),
		Location:      utils.SanitizeInput(in.Location),
		ContactPerson: utils.SanitizeInput(in.ContactPerson),
		ContactPhone:  utils.SanitizeInput(in.ContactPhone),
		ContactEmail:  utils.NormalizeEmail(utils.SanitizeInput(in.ContactEmail)),
		IsTop:         in.IsTop,
		IsFeatured:    in.IsFeatured,
		Currency:      models.CurrencyRUB,
	}

	if l.Title == "" {
		verr.Add("title", "Title is required")
	} else if utf8.RuneCountInString(l.Title) > 255 {
		verr.Add("title", "Title is too long")
	}
	if l.Description == "" {
		verr.Add("description", "Description is required")
	}
	if l.Location == "" {
		verr.Add("location", "Location is required")
	}

	if in.Type == "" {
		verr.Add("type", "Listing type is required")
	} else if t, err := models.ParseListingType(in.Type); err != nil {
		verr.Add("type", "Unknown listing type")
	} else {
		l.Type = t
	}

	if in.Currency != "" {
		if c, err := models.ParseCurrency(in.Currency); err != nil {
			verr.Add("currency", "Unknown currency")
		} else {
			l.Currency = c
		}
	}

	if p, err := utils.ParseAmount(in.Price); err != nil || (p != nil && *p < 0) {
		verr.Add("price", "Price must be a non-negative number")
	} else {
		l.Price = p
	}

	if in.CategoryID != "" {
		id, ok := utils.ParseID(in.CategoryID)
		if !ok {
			verr.Add("category_id", "Unknown category")
		} else if n, err := s.gw.CountWhere(ctx, &models.Category{}, "id = ?", id); err != nil {
			return nil, err
		} else if n == 0 {
			verr.Add("category_id", "Unknown category")
		} else {
			l.CategoryID = &id
		}
	}

	if l.ContactEmail != "" {
		if _, err := mail.ParseAddress(l.ContactEmail); err != nil {
			verr.Add("contact_email", "Contact email is not valid")
		}
	}
	if l.ContactPerson == "" {
		l.ContactPerson = owner.Name
	}
	if l.ContactPhone == "" {
		l.ContactPhone = owner.Phone
	}
	if l.ContactEmail == "" {
		l.ContactEmail = owner.Email
	}

	// Salary, employment and experience only exist for vacancies.
	if l.Type == models.ListingJobs {
		from, errFrom := utils.ParseAmount(in.SalaryFrom)
		to, errTo := utils.ParseAmount(in.SalaryTo)
		switch {
		case errFrom != nil || (from != nil && *from < 0):
			verr.Add("salary_from", "Salary must be a non-negative number")
		case errTo != nil || (to != nil && *to < 0):
			verr.Add("salary_to", "Salary must be a non-negative number")
		case from != nil && to != nil && *from > *to:
			verr.Add("salary_to", "Salary range is reversed")
		default:
			l.SalaryFrom, l.SalaryTo = from, to
		}
		if in.EmploymentType != "" {
			if e, err := models.ParseEmploymentType(in.EmploymentType); err != nil {
				verr.Add("employment_type", "Unknown employment type")
			} else {
				l.EmploymentType = &e
			}
		}
		if in.ExperienceRequired != "" {
			if e, err := models.ParseExperienceLevel(in.ExperienceRequired); err != nil {
				verr.Add("experience_required", "Unknown experience level")
			} else {
				l.ExperienceRequired = &e
			}
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, id uint) (*models.Listing, error) {
	var l models.Listing
	if err := s.gw.FetchByID(ctx, &l, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListPublic returns active, unexpired listings, top placements first.
func (s *ListingService) ListPublic(ctx context.Context, f ListingFilter) ([]models.Listing, int64, error) {
	var rows []models.Listing
	query := "status = ? AND expires_at > ?"
	args := []any{models.ListingActive, s.now()}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	total, err := s.gw.Page(ctx, &models.Listing{}, &rows, f.Page, ListingsPerPage,
		"is_top DESC, is_featured DESC, created_at DESC, id DESC", query, args...)
	return rows, total, err
}

// RecentPublic returns up to limit live listings, newest first.
func (s *ListingService) RecentPublic(ctx context.Context, limit int) ([]models.Listing, error) {
	var rows []models.Listing
	err := s.gw.LatestBy(ctx, &rows, limit, "created_at DESC, id DESC",
		"status = ? AND expires_at > ?", models.ListingActive, s.now())
	return rows, err
}

func (s *ListingService) ListByOwner(ctx context.Context, userID uint) ([]models.Listing, error) {
	var rows []models.Listing
	err := s.gw.FetchMany(ctx, &rows, "created_at DESC, id DESC", "user_id = ?", userID)
	return rows, err
}

// CountByOwner returns the total number of listings of a user and how many
// of them are currently live.
func (s *ListingService) CountByOwner(ctx context.Context, userID uint) (total, active int64, err error) {
	total, err = s.gw.CountWhere(ctx, &models.Listing{}, "user_id = ?", userID)
	if err != nil {
		return 0, 0, err
	}
	active, err = s.gw.CountWhere(ctx, &models.Listing{}, "user_id = ? AND status = ? AND expires_at > ?",
		userID, models.ListingActive, s.now())
	return total, active, err
}

// SetStatus is the moderation action of the admin area.
func (s *ListingService) SetStatus(ctx context.Context, actor *models.User, id uint, status models.ListingStatus) error {
	if actor == nil || !actor.Role.CanModerate() {
		return ErrForbidden
	}
	n, err := s.gw.UpdateWhere(ctx, &models.Listing{}, map[string]any{"status": status}, "id = ?", id)
	if err != nil {
		s.log.Error().Err(err).Uint("listing_id", id).Msg("listing status update failed")
		return fmt.Errorf("update listing status: %w", err)
	}
	if n == 0 {
		return ErrListingNotFound
	}
	s.log.Info().Uint("listing_id", id).Uint("moderator_id", actor.ID).Str("status", string(status)).Msg("listing status changed")
	return nil
}

func (s *ListingService) Categories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := s.gw.FetchMany(ctx, &rows, "sort_order, name", "parent_id IS NULL")
	return rows, err
}

// EffectiveStatus is the status a reader should see: an active listing past
// its expiry reads as expired even before the sweeper persists it.
func EffectiveStatus(l *models.Listing, now time.Time) models.ListingStatus {
	if l.Status == models.ListingActive && !l.ExpiresAt.After(now) {
		return models.ListingExpired
	}
	return l.Status
}

// StatusLabel maps a stored status to its display label. Unknown values are
// shown as they are.
func StatusLabel(status string) string {
	s, err := models.ParseListingStatus(status)
	if err != nil {
		return status
	}
	return s.Label()
}

func placementDescription(title string) string {
	return truncateDescription("Listing placement: " + title)
}
