package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/tourney/internal/dependencies/clock"
	"github.com/mcoot/tourney/internal/dependencies/ids"
	"github.com/mcoot/tourney/internal/events"
	"github.com/mcoot/tourney/internal/services/auth"
	"github.com/mcoot/tourney/internal/services/registration"
	"github.com/mcoot/tourney/internal/services/team"
	"github.com/mcoot/tourney/internal/services/tournament"
	"github.com/mcoot/tourney/internal/services/user"
	"github.com/mcoot/tourney/internal/storage"
	"github.com/mcoot/tourney/internal/storage/memory"
	redisstorage "github.com/mcoot/tourney/internal/storage/redis"
	"github.com/mcoot/tourney/internal/storage/sqlstore"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Services
	AuthService        *auth.Service
	TournamentEngine   *tournament.Engine
	RegistrationEngine *registration.Engine
	TeamService        *team.Service
	UserService        *user.Service
	HubManager         *events.HubManager
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service. Secret is required.
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis", "sqlite" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLConfig holds database settings (required if StorageType is "sqlite" or "postgres")
	SQLConfig *sqlstore.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if len(cfg.AuthConfig.Secret) == 0 {
		return nil, errors.New("AuthConfig.Secret is required")
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return newWithDependencies(store, clock.New(), ids.New(), cfg.AuthConfig, logger), nil
}

func openStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(ctx, *cfg.RedisConfig)
	case StorageTypeSQLite, StorageTypePostgres:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		sqlCfg := *cfg.SQLConfig
		sqlCfg.Dialect = sqlstore.Dialect(storageType)
		return sqlstore.Open(ctx, sqlCfg)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis', 'sqlite' or 'postgres'")
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, idGen ids.Generator, authCfg auth.Config, logger *slog.Logger) *App {
	hubManager := events.NewHubManager(logger)
	publisher := events.NewBroadcaster(hubManager, logger)

	return &App{
		Storage:            store,
		Clock:              clk,
		IDs:                idGen,
		AuthService:        auth.New(store, clk, idGen, authCfg, logger),
		TournamentEngine:   tournament.NewEngine(store, clk, idGen, publisher, logger),
		RegistrationEngine: registration.NewEngine(store, clk, idGen, publisher, logger),
		TeamService:        team.New(store, clk, idGen, logger),
		UserService:        user.New(store, logger),
		HubManager:         hubManager,
	}
}

// Close stops the event hubs and releases storage connections
func (a *App) Close() error {
	a.HubManager.Close()
	if c, ok := a.Storage.(storage.Closer); ok {
		return c.Close()
	}
	return nil
}
