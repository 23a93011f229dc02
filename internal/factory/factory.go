package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/sembrant/chatdir/internal/dependencies/clock"
	"github.com/sembrant/chatdir/internal/directory/host"
	"github.com/sembrant/chatdir/internal/directory/room"
	"github.com/sembrant/chatdir/internal/directory/user"
	"github.com/sembrant/chatdir/internal/store"
	"github.com/sembrant/chatdir/internal/store/memory"
	redisstore "github.com/sembrant/chatdir/internal/store/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired directory components.
type App struct {
	Store store.Store
	Clock clock.Clock

	Users   *user.Service
	Rooms   *room.Service
	Servers *host.Service
}

// Config holds configuration for the application factory.
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if
	// StorageType is "redis")
	RedisConfig *redisstore.Config
}

// New creates an application with all dependencies wired.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var st store.Store
	switch storageType {
	case StorageTypeMemory:
		st = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstore.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		st = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(st, clock.New(), logger), nil
}

// newWithDependencies wires the directories over the given store. The
// identity and room directories depend on each other, so the room side
// is bound back into the identity side after construction.
func newWithDependencies(st store.Store, clk clock.Clock, logger *slog.Logger) *App {
	users := user.New(st, clk, logger)
	servers := host.New(st)
	rooms := room.New(st, users, servers, logger)
	users.BindRooms(rooms)

	return &App{
		Store:   st,
		Clock:   clk,
		Users:   users,
		Rooms:   rooms,
		Servers: servers,
	}
}

// Close releases the store connection.
func (a *App) Close() error {
	return a.Store.Close()
}
