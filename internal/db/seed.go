package db

import (
	"context"
	"fmt"

	"textilserver/internal/models"
)

var defaultCategories = []models.Category{
	{Name: "Fabrics", Slug: "fabrics", SortOrder: 1},
	{Name: "Yarn and threads", Slug: "yarn", SortOrder: 2},
	{Name: "Knitwear", Slug: "knitwear", SortOrder: 3},
	{Name: "Garments", Slug: "garments", SortOrder: 4},
	{Name: "Home textiles", Slug: "home-textiles", SortOrder: 5},
	{Name: "Accessories and trims", Slug: "accessories", SortOrder: 6},
	{Name: "Sewing equipment", Slug: "sewing-equipment", SortOrder: 7},
	{Name: "Tailoring services", Slug: "tailoring", SortOrder: 8},
}

// SeedCategories creates the top-level categories on an empty table.
func (g *Gateway) SeedCategories(ctx context.Context) error {
	count, err := g.CountWhere(ctx, &models.Category{}, "")
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		g.log.Debug().Msg("categories already seeded, skipping")
		return nil
	}

	for _, c := range defaultCategories {
		if _, err := g.InsertReturningID(ctx, &c); err != nil {
			return fmt.Errorf("create category %s: %w", c.Slug, err)
		}
	}
	g.log.Info().Int("count", len(defaultCategories)).Msg("initial categories created")
	return nil
}
