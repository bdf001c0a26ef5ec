package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcoot/tourney/internal/api"
	"github.com/mcoot/tourney/internal/config"
	"github.com/mcoot/tourney/internal/factory"
	"github.com/mcoot/tourney/internal/services/auth"
	redisstorage "github.com/mcoot/tourney/internal/storage/redis"
	"github.com/mcoot/tourney/internal/storage/sqlstore"
)

// How often hubs without subscribers are released
const hubCleanupInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = []byte(cfg.JWTSecret)
	authCfg.TokenTTL = cfg.TokenTTL

	factoryCfg := factory.Config{
		AuthConfig:  authCfg,
		Logger:      logger,
		StorageType: cfg.Storage,
	}
	switch cfg.Storage {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	case factory.StorageTypeSQLite:
		factoryCfg.SQLConfig = &sqlstore.Config{DSN: cfg.SQLitePath}
	case factory.StorageTypePostgres:
		factoryCfg.SQLConfig = &sqlstore.Config{DSN: cfg.PostgresDSN, MaxOpenConns: 10}
	}

	// Create application factory
	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close application", slog.String("error", err.Error()))
		}
	}()

	if cfg.HasAdmin() {
		admin, err := app.AuthService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Error("failed to bootstrap admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("admin account ready", slog.String("user_id", string(admin.ID)))
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		TournamentEngine:   app.TournamentEngine,
		RegistrationEngine: app.RegistrationEngine,
		TeamService:        app.TeamService,
		UserService:        app.UserService,
		HubManager:         app.HubManager,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.HTTPHost
	serverConfig.Port = cfg.HTTPPort
	serverConfig.ShutdownTimeout = cfg.ShutdownTimeout
	server := api.NewServer(router, serverConfig, logger)

	go func() {
		ticker := time.NewTicker(hubCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				app.HubManager.CleanupEmptyHubs()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// Close event streams first so Shutdown does not wait on them
		app.HubManager.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
