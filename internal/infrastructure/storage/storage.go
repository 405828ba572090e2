// Package storage selects and opens the credential and reading stores for the
// configured driver.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/ports"
	"github.com/2emr/sensor-backend/internal/infrastructure/db/memory"
	mongodb "github.com/2emr/sensor-backend/internal/infrastructure/db/mongo"
	"github.com/2emr/sensor-backend/internal/infrastructure/db/postgres"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
	"github.com/2emr/sensor-backend/internal/pkg/config"
)

// Backend bundles the repositories of one storage driver. Checks holds the
// named readiness probes for the connections the backend opened.
type Backend struct {
	Driver   string
	Users    ports.UserRepository
	Readings ports.ReadingRepository
	Checks   map[string]ports.Pinger

	closers []func(context.Context) error
}

// Close releases every connection the backend opened.
func (b *Backend) Close(ctx context.Context) error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open connects the repositories for cfg.StorageDriver.
func Open(ctx context.Context, cfg *config.Config, c clock.Clock, log zerolog.Logger) (*Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return OpenMemory(c), nil
	case config.DriverMongo:
		return openMongo(ctx, cfg.Mongo, c, log)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}

// OpenMemory returns a process-local backend. Data is lost on restart.
func OpenMemory(c clock.Clock) *Backend {
	return &Backend{
		Driver:   config.DriverMemory,
		Users:    memory.NewUserRepository(),
		Readings: memory.NewReadingRepository(c),
		Checks:   map[string]ports.Pinger{},
	}
}

func openMongo(ctx context.Context, cfg config.MongoConfig, c clock.Clock, log zerolog.Logger) (*Backend, error) {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.URI, Database: cfg.Database})
	if err != nil {
		return nil, err
	}

	users := mongodb.NewUserRepository(db)
	readings := mongodb.NewReadingRepository(db, c)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo user indexes: %w", err)
	}
	if err := readings.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo reading indexes: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("mongo storage ready")
	return &Backend{
		Driver:   config.DriverMongo,
		Users:    users,
		Readings: readings,
		Checks:   map[string]ports.Pinger{"mongo": mongodb.NewPinger(db)},
		closers:  []func(context.Context) error{client.Disconnect},
	}, nil
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*Backend, error) {
	if err := postgres.Migrate(ctx, cfg.DSN); err != nil {
		return nil, err
	}
	pool, err := postgres.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	closePool := func(context.Context) error {
		pool.Close()
		return nil
	}

	log.Info().Msg("postgres storage ready")
	return &Backend{
		Driver:   config.DriverPostgres,
		Users:    postgres.NewUserRepository(pool),
		Readings: postgres.NewReadingRepository(pool),
		Checks:   map[string]ports.Pinger{"postgres": postgres.NewPinger(pool)},
		closers:  []func(context.Context) error{closePool},
	}, nil
}
