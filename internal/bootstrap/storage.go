// Package bootstrap opens the storage stack selected by configuration.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
)

// Pinger is a dependency with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage holds the repositories and the ticket counter.
type Storage struct {
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Tickets  repository.TicketRepository
	Users    repository.UserRepository
	Counter  ticketid.CounterStore
}

// OpenStorage connects to Postgres when a DSN is configured and falls back to
// in-memory repositories otherwise.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Storage{Postgres: pg}

	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		s.Tickets = repository.NewTicketRepository(pg.PoolHandle())
		s.Users = repository.NewUserRepository(pg.PoolHandle())
	} else {
		s.Tickets = repository.NewMemoryTicketRepository()
		s.Users = repository.NewMemoryUserRepository()
	}

	if err := s.openCounter(ctx, cfg, logger); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) openCounter(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	backend := cfg.Tickets.CounterBackend
	if backend == config.CounterBackendPostgres && !s.Postgres.Enabled() {
		logger.Warn("postgres counter requested without a database; using in-memory counter")
		backend = config.CounterBackendMemory
	}

	switch backend {
	case config.CounterBackendPostgres:
		s.Counter = repository.NewCounterRepository(s.Postgres.PoolHandle())
	case config.CounterBackendRedis:
		s.Redis = persistence.NewRedis(cfg.Redis, logger)
		s.Counter = s.Redis
	default:
		s.Counter = ticketid.NewMemoryStore(0)
	}

	if err := s.seedCounter(ctx, cfg.Tickets.IDPrefix); err != nil {
		if backend != config.CounterBackendRedis {
			return err
		}
		// An unreachable Redis yields placeholder codes until it returns.
		logger.Warn("unable to seed redis ticket counter", zap.Error(err))
	}
	logger.Info("ticket counter ready", zap.String("backend", backend))
	return nil
}

// seedCounter raises the counter past the highest sequential code stored.
func (s *Storage) seedCounter(ctx context.Context, prefix string) error {
	seeder, ok := s.Counter.(ticketid.Seeder)
	if !ok {
		return nil
	}
	if prefix == "" {
		prefix = ticketid.DefaultPrefix
	}
	floor, err := s.Tickets.MaxSequentialCode(ctx, prefix)
	if err != nil {
		return fmt.Errorf("read highest ticket code: %w", err)
	}
	if err := seeder.SeedCounter(ctx, ticketid.CounterName, floor); err != nil {
		return fmt.Errorf("seed ticket counter: %w", err)
	}
	return nil
}

// Probes lists the dependencies readiness should check.
func (s *Storage) Probes() map[string]Pinger {
	probes := map[string]Pinger{}
	if s.Postgres.Enabled() {
		probes["postgres"] = s.Postgres
	}
	if s.Redis != nil {
		probes["redis"] = s.Redis
	}
	return probes
}

// Close releases connections.
func (s *Storage) Close() {
	s.Redis.Close()
	s.Postgres.Close()
}
