package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
)

func TestOpenStorageWithoutDatabaseUsesMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tickets.CounterBackend = config.CounterBackendPostgres

	storage, err := OpenStorage(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer storage.Close()

	assert.False(t, storage.Postgres.Enabled())
	assert.IsType(t, &repository.MemoryTicketRepository{}, storage.Tickets)
	assert.IsType(t, &repository.MemoryUserRepository{}, storage.Users)
	assert.IsType(t, &ticketid.MemoryStore{}, storage.Counter)
	assert.Empty(t, storage.Probes())

	n, err := storage.Counter.Next(context.Background(), ticketid.CounterName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCounterResumesPastStoredCodes(t *testing.T) {
	ctx := context.Background()
	tickets := repository.NewMemoryTicketRepository()
	for _, code := range []string{"HD00001", "HD00002", "HDT1712345678901-3f2a9c"} {
		tickets.Seed(domain.Ticket{TicketID: code, Status: domain.TicketStatusActive})
	}

	cfg := &config.Config{}
	cfg.Tickets.CounterBackend = config.CounterBackendMemory
	cfg.Tickets.IDPrefix = "HD"

	s := &Storage{Postgres: &persistence.Postgres{}, Tickets: tickets}
	require.NoError(t, s.openCounter(ctx, cfg, zap.NewNop()))

	lifecycle := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		Policy:     policy.New(policy.NoteAccessOpen),
		IDs:        ticketid.NewGenerator(cfg.Tickets.IDPrefix, s.Counter, nil),
	})
	customer, err := domain.NewActor(&domain.User{
		ID:    "c1",
		Name:  "Cora",
		Email: "cora@example.com",
		Roles: []domain.Role{domain.RoleCustomer},
	}, domain.RoleCustomer)
	require.NoError(t, err)

	for _, want := range []string{"HD00003", "HD00004"} {
		ticket, err := lifecycle.Create(ctx, customer, "Printer", "Out of toner")
		require.NoError(t, err)
		assert.Equal(t, want, ticket.TicketID)
	}
}
