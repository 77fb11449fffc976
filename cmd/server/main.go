package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/api"
	"github.com/hiredeck/hiredeck/internal/app"
	"github.com/hiredeck/hiredeck/internal/app/maintenance"
	"github.com/hiredeck/hiredeck/internal/database"
	"github.com/hiredeck/hiredeck/internal/notifications"
	"github.com/hiredeck/hiredeck/internal/services"
	"github.com/hiredeck/hiredeck/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("hiredeck-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := database.OpenAndMigrate(convertDatabaseConfig(cfg))
	if err != nil {
		return fmt.Errorf("initialise database: %w", err)
	}
	defer closeDatabase(db, log)

	outboxSvc, err := services.NewOutboxService(db,
		services.WithOutboxLockTimeout(cfg.Outbox.LockTimeout),
	)
	if err != nil {
		return fmt.Errorf("initialise outbox service: %w", err)
	}

	worker := notifications.NewWorker(outboxSvc, notifications.LogNotifier{},
		notifications.WithPollInterval(cfg.Outbox.PollInterval),
		notifications.WithBatchSize(cfg.Outbox.BatchSize),
		notifications.WithMaxAttempts(cfg.Outbox.MaxAttempts),
	)
	worker.Start(ctx)
	defer worker.Stop()

	if cfg.Maintenance.Enabled {
		cleaner := maintenance.NewCleaner(db,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithTokenRetention(cfg.Maintenance.TokenRetention),
			maintenance.WithOutboxRetention(cfg.Maintenance.OutboxRetention),
		)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			stopCtx := cleaner.Stop()
			if err := cleaner.RunOnce(stopCtx); err != nil {
				log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			}
		}()
	}

	router, err := api.NewRouter(db, outboxSvc, cfg)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	return database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
	}
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
