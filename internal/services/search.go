package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"textilserver/internal/db"
	"textilserver/internal/models"
	"textilserver/internal/utils"
)

const (
	SearchLimit    = 10
	searchMinRunes = 2
	searchTTL      = 30 * time.Second
)

// SearchKind selects what the quick search looks at.
type SearchKind string

const (
	SearchListings  SearchKind = "listings"
	SearchCompanies SearchKind = "companies"
)

// SearchResult is one suggestion row of the quick search.
type SearchResult struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Meta  string `json:"meta"`
}

type SearchService struct {
	gw    *db.Gateway
	cache *utils.Cache
	now   Clock
}

func NewSearchService(gw *db.Gateway, cache *utils.Cache, now Clock) *SearchService {
	if now == nil {
		now = SystemClock
	}
	return &SearchService{gw: gw, cache: cache, now: now}
}

// Search matches query against live listings or active companies. Queries
// shorter than two characters return nothing.
func (s *SearchService) Search(ctx context.Context, query string, kind SearchKind) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < searchMinRunes {
		return []SearchResult{}, nil
	}
	if kind != SearchCompanies {
		kind = SearchListings
	}

	key := fmt.Sprintf("search:%s:%s", kind, strings.ToLower(query))
	return utils.Cached(s.cache, key, searchTTL, func() ([]SearchResult, error) {
		pattern := "%" + utils.EscapeLike(strings.ToLower(query)) + "%"
		if kind == SearchCompanies {
			return s.companies(ctx, pattern)
		}
		return s.listings(ctx, pattern)
	})
}

func (s *SearchService) listings(ctx context.Context, pattern string) ([]SearchResult, error) {
	var rows []models.Listing
	err := s.gw.LatestBy(ctx, &rows, SearchLimit, "is_top DESC, created_at DESC, id DESC",
		`status = ? AND expires_at > ? AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
		models.ListingActive, s.now(), pattern, pattern)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(rows))
	for _, l := range rows {
		out = append(out, SearchResult{
			ID:    l.ID,
			Title: l.Title,
			Meta:  strings.Join([]string{l.Type.Label(), l.Location, utils.FormatPrice(l.Price, string(l.Currency))}, " · "),
		})
	}
	return out, nil
}

func (s *SearchService) companies(ctx context.Context, pattern string) ([]SearchResult, error) {
	var rows []models.Company
	err := s.gw.LatestBy(ctx, &rows, SearchLimit, "name, id",
		`status = ? AND LOWER(name) LIKE ? ESCAPE '\'`, "active", pattern)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(rows))
	for _, c := range rows {
		meta := c.Type.Label()
		if c.City != "" {
			meta += " · " + c.City
		}
		out = append(out, SearchResult{ID: c.ID, Title: c.Name, Meta: meta})
	}
	return out, nil
}
