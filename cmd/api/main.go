package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/app"
	"github.com/HoussemEK/Direction-Project/internal/auth"
	"github.com/HoussemEK/Direction-Project/internal/infra"
	"github.com/jonboulle/clockwork"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	clock := clockwork.NewRealClock()
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, clock)

	services := app.NewServices(app.Deps{
		Pool:                pool,
		JWTMgr:              jwtMgr,
		Clock:               clock,
		Logger:              logger,
		Drafter:             app.NewDrafter(cfg.AIServiceURL, cfg.AITimeout, logger),
		AIRequestsPerMinute: cfg.AIRateLimitPerMinute,
	})
	if services.AI == nil {
		logger.Info("ai drafting disabled; new levels use default content")
	}

	if cfg.SchedulerEnabled {
		sched, err := infra.NewScheduler(ctx, services.Gamification, services.Challenges, cfg.ChallengeSweepInterval, clock, logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				logger.Error("scheduler shutdown", "error", err)
			}
		}()
	}

	r := app.NewRouter(app.RouterDeps{
		Services:       services,
		JWTMgr:         jwtMgr,
		Logger:         logger,
		Clock:          clock,
		AllowedOrigins: cfg.AllowedOrigins(),
		Ping: func(ctx context.Context) error {
			return infra.HealthCheck(ctx, pool)
		},
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
