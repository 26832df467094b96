package canteen

import (
	"context"
	"fmt"

	"campus-eats/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RegistryConfig lists the directory files to load.
type RegistryConfig struct {
	// FilePaths are merged in order; later files override names from earlier ones.
	FilePaths []string
}

// registry implements Validator over a merged, read-only Directory.
type registry struct {
	dir    *Directory
	open   bool
	logger zerolog.Logger
}

// NewRegistry loads every configured file concurrently and merges them.
// With no files configured the registry accepts any non-empty id.
func NewRegistry(ctx context.Context, cfg RegistryConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	logger = logger.With().Str("component", "canteen-registry").Logger()

	r := &registry{dir: NewDirectory(0), logger: logger}
	if len(cfg.FilePaths) == 0 {
		r.open = true
		logger.Warn().Msg("no canteen directory configured, accepting any canteen id")
		return r, nil
	}

	dirs := make([]*Directory, len(cfg.FilePaths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range cfg.FilePaths {
		g.Go(func() error {
			dir, err := loader.Load(gctx, path)
			if err != nil {
				return fmt.Errorf("failed to load canteen directory %s: %w", path, err)
			}
			dirs[i] = dir
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("failed to initialise canteen registry")
		return nil, err
	}

	for _, d := range dirs {
		r.dir.Merge(d)
	}

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Int("canteens", r.dir.Size()).
		Msg("canteen registry initialised")

	return r, nil
}

// Validate checks that id names a known canteen.
func (r *registry) Validate(ctx context.Context, id string) error {
	if id == "" {
		return model.ErrUnknownCanteen
	}
	if r.open || r.dir.Contains(id) {
		return nil
	}
	r.logger.Debug().Str("canteen_id", id).Msg("unknown canteen")
	return model.ErrUnknownCanteen
}

// Canteens lists the known canteens.
func (r *registry) Canteens() []Canteen {
	return r.dir.Canteens()
}

// Close is a no-op beyond logging; the directory is immutable once loaded.
func (r *registry) Close() error {
	r.logger.Info().Msg("canteen registry closed")
	return nil
}
