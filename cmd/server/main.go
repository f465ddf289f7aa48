package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"backoffice/backend/internal/cache"
	"backoffice/backend/internal/config"
	"backoffice/backend/internal/httpapi"
	"backoffice/backend/internal/logger"
	"backoffice/backend/internal/mailer"
	"backoffice/backend/internal/service"
	"backoffice/backend/internal/store"
	"backoffice/backend/internal/store/memory"
	pgstore "backoffice/backend/internal/store/postgres"
	sqlitestore "backoffice/backend/internal/store/sqlite"
)

type repository interface {
	store.Repository
	Close() error
}

func main() {
	if err := config.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()
	log := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn("close error", zap.Error(err))
			}
		}
	}()

	repo, backend, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, repo.Close)
	log.Info("repository ready", zap.String("backend", backend), zap.Bool("strict_stock_guard", cfg.StrictStockGuard))

	reports := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop report cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			reports = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("report cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	var outbox mailer.Mailer = mailer.Noop{}
	if cfg.SMTPHost != "" {
		smtp, err := mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger.Named(log, "mailer"))
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		outbox = smtp
	}

	svc := service.New(repo, service.Options{
		Cache:    reports,
		CacheTTL: time.Duration(cfg.ReportCacheTTLSeconds) * time.Second,
		Mailer:   outbox,
		Logger:   logger.Named(log, "service"),
		Rates:    cfg.Rates,
	})
	if shouldSeed(cfg) {
		if err := svc.Seed(ctx, cfg.SeedAdminPassword); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger.Named(log, "api"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("backoffice backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}

// openRepository picks postgres, sqlite or the in-memory store, in that
// order of precedence.
func openRepository(ctx context.Context, cfg config.Config) (repository, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		if err := pgstore.Migrate(cfg.DatabaseURL); err != nil {
			return nil, "", fmt.Errorf("migrate postgres: %w", err)
		}
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, pgstore.WithGuardedStock(cfg.StrictStockGuard))
		if err != nil {
			return nil, "", fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		return pg, "postgres", nil
	case cfg.SQLitePath != "":
		db, err := sqlitestore.Open(cfg.SQLitePath, sqlitestore.WithGuardedStock(cfg.StrictStockGuard))
		if err != nil {
			return nil, "", err
		}
		return db, "sqlite", nil
	default:
		return memory.New(memory.WithGuardedStock(cfg.StrictStockGuard)), "memory", nil
	}
}

// shouldSeed always seeds the in-memory store, which starts empty on every run.
func shouldSeed(cfg config.Config) bool {
	return cfg.SeedDemoData || (cfg.DatabaseURL == "" && cfg.SQLitePath == "")
}
