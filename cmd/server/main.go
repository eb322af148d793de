package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/database/postgres"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/repository"
	"shareit/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagConfig string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shareit-server",
		Short:         "ShareIt rental server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: $CONFIG_PATH or configs/config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE:  func(*cobra.Command, []string) error { return runServe() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or upgrade the database schema",
			RunE:  func(*cobra.Command, []string) error { return runMigrate() },
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Write one SQLite backup and prune old ones",
			RunE:  func(*cobra.Command, []string) error { return runBackup() },
		},
	)
	return root
}

func runServe() error {
	cfg, logger, closer, err := loadConfigAndLogger("server-main")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, sqlite, err := openStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := events.NewEventBus()
	metrics.SubscribeEvents(bus)
	logging.SubscribeEvents(bus, &logger, events.AllEventTypes...)

	svcLogger := logging.Component(&logger, "service")
	services := api.Services{
		Users:    service.NewUserService(store, bus, svcLogger),
		Items:    service.NewItemService(store, bus, svcLogger),
		Bookings: service.NewBookingService(store, bus, svcLogger),
		Requests: service.NewRequestService(store, bus, svcLogger),
	}

	limiter := initRateLimiter(cfg, &logger)
	server := api.NewServer(cfg.API, cfg.Pagination.DefaultSize, services, store, limiter, logging.Component(&logger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	if sqlite != nil && cfg.Backup.Enabled {
		go database.NewBackupService(sqlite, cfg.Backup, &logger).Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("driver", cfg.Database.Driver).Msg("ShareIt server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("ShareIt server stopped")
	return nil
}

func runMigrate() error {
	cfg, logger, closer, err := loadConfigAndLogger("migrate")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	// Opening a store applies its schema.
	store, _, err := openStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info().Str("driver", cfg.Database.Driver).Msg("schema is up to date")
	return nil
}

func runBackup() error {
	cfg, logger, closer, err := loadConfigAndLogger("backup")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return fmt.Errorf("backup supports only the %s driver, got %s", config.DriverSQLite, cfg.Database.Driver)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	backups := database.NewBackupService(db, cfg.Backup, &logger)
	path, err := backups.PerformBackup(context.Background())
	if err != nil {
		return fmt.Errorf("perform backup: %w", err)
	}
	backups.CleanupOldBackups()

	logger.Info().Str("path", path).Msg("backup written")
	return nil
}

func loadConfigAndLogger(component string) (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := flagConfig
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", component).Logger()

	return cfg, logger, closer, nil
}

// openStore returns the configured repository. The second result is set only
// for the sqlite driver, which is the one the backup service understands.
func openStore(cfg *config.Config, logger *zerolog.Logger) (domain.Repository, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(cfg.Database.Postgres, logger)
		if err != nil {
			logger.Error().Err(err).Str("host", cfg.Database.Postgres.Host).Msg("init postgres")
			return nil, nil, err
		}
		return store, nil, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		return db, db, nil
	}
}

func initRateLimiter(cfg *config.Config, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	if cfg.Redis.Address == "" {
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, rate limits stay in memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	l := logging.Component(logger, "rate-limit")
	return repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(client), memory, l)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9100
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
