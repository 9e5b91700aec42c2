// Command backfill-notes tags every note stored without a note type as a
// customer note. It is safe to run repeatedly.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/bootstrap"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
	// The counter is not used here; avoid touching Redis.
	cfg.Tickets.CounterBackend = config.CounterBackendMemory

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	storage, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer storage.Close()

	notes := service.NewNoteService(service.TicketDependencies{
		TicketRepo: storage.Tickets,
		Policy:     policy.New(policy.ParseNoteAccess(cfg.Tickets.NoteAccess)),
		Logger:     logger,
	})

	n, err := notes.BackfillAll(ctx)
	if err != nil {
		logger.Fatal("backfill failed", zap.Error(err))
	}
	logger.Info("backfill complete", zap.Int("updated", n))
}
