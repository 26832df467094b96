package database

import (
	"context"
	"fmt"

	"campus-eats/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SampleMenu is a small two-canteen menu for local development.
func SampleMenu() []model.MenuItem {
	item := func(id, name, category, canteenID, price string) model.MenuItem {
		return model.MenuItem{
			ID:        id,
			Name:      name,
			Category:  category,
			CanteenID: canteenID,
			Price:     decimal.RequireFromString(price),
			Available: true,
		}
	}
	return []model.MenuItem{
		item("N-DOSA", "Masala Dosa", "mains", "north", "45.00"),
		item("N-IDLI", "Idli Sambar", "mains", "north", "30.00"),
		item("N-COFFEE", "Filter Coffee", "drinks", "north", "15.00"),
		item("N-VADA", "Medu Vada", "snacks", "north", "20.00"),
		item("S-THALI", "Veg Thali", "mains", "south", "80.00"),
		item("S-BIRYANI", "Veg Biryani", "mains", "south", "95.00"),
		item("S-LASSI", "Sweet Lassi", "drinks", "south", "35.00"),
		item("S-SAMOSA", "Samosa", "snacks", "south", "12.50"),
	}
}

// SeedMenu upserts items into menu_items in one batch.
func SeedMenu(ctx context.Context, pool *pgxpool.Pool, items []model.MenuItem) error {
	const query = `
		INSERT INTO menu_items (id, name, category, canteen_id, price, available)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			canteen_id = EXCLUDED.canteen_id,
			price = EXCLUDED.price,
			available = EXCLUDED.available
	`

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(query, it.ID, it.Name, it.Category, it.CanteenID, it.Price.String(), it.Available)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, it := range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to seed menu item %s: %w", it.ID, err)
		}
	}
	return nil
}
