package service

import (
	"context"
	"fmt"

	"campus-eats/internal/model"
	"campus-eats/internal/repository"

	"github.com/rs/zerolog"
)

// menuService implements MenuService.
type menuService struct {
	menuRepo repository.MenuRepository
	logger   zerolog.Logger
}

// NewMenuService creates a new menu service.
func NewMenuService(menuRepo repository.MenuRepository, logger zerolog.Logger) MenuService {
	return &menuService{
		menuRepo: menuRepo,
		logger:   logger.With().Str("service", "menu").Logger(),
	}
}

// ListMenu retrieves available menu items with pagination.
func (s *menuService) ListMenu(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.menuRepo.GetAll(ctx, canteenID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Str("canteen_id", canteenID).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list menu")
		return nil, fmt.Errorf("%w: failed to get menu: %w", model.ErrRepository, err)
	}

	s.logger.Debug().
		Int("count", len(items)).
		Str("canteen_id", canteenID).
		Msg("retrieved menu")

	return items, nil
}
