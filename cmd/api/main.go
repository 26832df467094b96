package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-eats/internal/canteen"
	"campus-eats/internal/config"
	"campus-eats/internal/database"
	"campus-eats/internal/handler"
	"campus-eats/internal/lifecycle"
	"campus-eats/internal/livesync"
	"campus-eats/internal/middleware"
	"campus-eats/internal/notify"
	"campus-eats/internal/pickup"
	"campus-eats/internal/repository"
	"campus-eats/internal/router"
	"campus-eats/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// store bundles the repositories and change feed of one backend.
type store struct {
	orders repository.OrderRepository
	menu   repository.MenuRepository
	feed   repository.ChangeFeed
	ping   func(ctx context.Context) error
	run    func(ctx context.Context) error
	close  func()
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("store", cfg.Store.Driver).Msg("starting campus-eats API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// Initialize canteen loader with S3 and local fallback
	fileLoader := canteen.NewFileLoader(logger)
	var s3Loader canteen.Loader
	if cfg.S3.Enabled {
		s3Loader, err = canteen.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else if len(cfg.Canteen.Files) > 0 {
		logger.Info().Msg("using local file system for canteen files (S3 disabled)")
	}
	loader := canteen.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	canteens, err := canteen.NewRegistry(ctx, canteen.RegistryConfig{FilePaths: cfg.Canteen.Files}, loader, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize canteen registry: %w", err)
	}
	defer canteens.Close()

	publisher, err := newPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Initialize core components
	policy := lifecycle.Policy{StaffCanCancel: cfg.Lifecycle.StaffCanCancel}
	engine := lifecycle.NewEngine(st.orders, policy, logger, lifecycle.WithPublisher(publisher))
	hub := livesync.NewHub(st.orders, st.feed, logger)
	scanner := pickup.NewService(st.orders, engine, logger)

	// Initialize services
	menuService := service.NewMenuService(st.menu, logger)
	orderService := service.NewOrderService(st.orders, st.menu, canteens, engine, logger)

	// Initialize router
	mux := router.New(router.Handlers{
		Menu:   handler.NewMenuHandler(menuService, canteens, logger),
		Order:  handler.NewOrderHandler(orderService, logger),
		Stream: handler.NewStreamHandler(hub, orderService, logger),
		Pickup: handler.NewPickupHandler(scanner, logger),
		Health: handler.NewHealthHandler(st.ping, hub.Active, logger),
	},
		[]byte(cfg.Auth.JWTSecret),
		middleware.NewRateLimiter(cfg.RateLimit.ScanPerSecond, cfg.RateLimit.ScanBurst, logger),
		logger,
	)

	// Create HTTP server. No WriteTimeout: event streams stay open, and
	// ordinary handlers finish well within ReadTimeout.
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	// Change feed
	g.Go(func() error {
		return st.run(gctx)
	})

	// HTTP server
	g.Go(func() error {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Shutdown on signal or on the first component failure
	g.Go(func() error {
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case sig := <-shutdown:
			logger.Info().
				Str("signal", sig.String()).
				Msg("shutdown signal received, starting graceful shutdown")
		case <-gctx.Done():
		}

		// Ending the base context closes open event streams so Shutdown
		// does not wait on them.
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
		return nil
	})

	return g.Wait()
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn().Msg("using in-memory store, orders are lost on restart")
		orders := repository.NewMemoryOrderRepository()
		return &store{
			orders: orders,
			menu:   repository.NewMemoryMenuRepository(database.SampleMenu()...),
			feed:   orders,
			run: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			close: func() {},
		}, nil

	default:
		// Initialize database connection pool
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info().Msg("database schema applied")
		}

		feed := repository.NewPostgresChangeFeed(pool, database.ChangeChannel, logger)
		return &store{
			orders: repository.NewOrderRepository(pool, logger),
			menu:   repository.NewMenuRepository(pool, logger),
			feed:   feed,
			ping:   pool.Ping,
			run:    feed.Run,
			close:  pool.Close,
		}, nil
	}
}

// newPublisher connects to RabbitMQ when enabled.
func newPublisher(cfg config.RabbitMQConfig, logger zerolog.Logger) (notify.Publisher, error) {
	if !cfg.Enabled {
		logger.Info().Msg("status change notifications disabled")
		return notify.NopPublisher{}, nil
	}

	publisher, err := notify.NewRabbitMQPublisher(cfg.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return publisher, nil
}
