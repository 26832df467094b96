package repository

import (
	"context"
	"fmt"

	"campus-eats/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// menuRepository implements the MenuRepository interface using PostgreSQL.
type menuRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMenuRepository creates a new PostgreSQL-backed menu repository.
func NewMenuRepository(pool *pgxpool.Pool, logger zerolog.Logger) MenuRepository {
	return &menuRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "menu").Logger(),
	}
}

// GetAll retrieves available menu items with pagination support.
func (r *menuRepository) GetAll(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error) {
	query := `
		SELECT id, name, category, canteen_id, price::text, available, created_at
		FROM menu_items
		WHERE available AND ($1 = '' OR canteen_id = $1)
		ORDER BY category, name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, canteenID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Str("canteen_id", canteenID).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query menu items")
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}

	return r.collect(rows)
}

// GetByIDs retrieves multiple menu items by their IDs.
func (r *menuRepository) GetByIDs(ctx context.Context, ids []string) ([]model.MenuItem, error) {
	if len(ids) == 0 {
		return []model.MenuItem{}, nil
	}

	query := `
		SELECT id, name, category, canteen_id, price::text, available, created_at
		FROM menu_items
		WHERE id = ANY($1)
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query menu items by IDs")
		return nil, fmt.Errorf("failed to query menu items by IDs: %w", err)
	}

	return r.collect(rows)
}

func (r *menuRepository) collect(rows pgx.Rows) ([]model.MenuItem, error) {
	defer rows.Close()

	items := []model.MenuItem{}
	for rows.Next() {
		var (
			m     model.MenuItem
			price string
		)
		err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.CanteenID, &price, &m.Available, &m.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan menu item row")
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		if m.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price %q for menu item %s: %w", price, m.ID, err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating menu item rows")
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}

	return items, nil
}
