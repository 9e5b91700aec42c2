package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.customer(t, "alice")
	bob := h.customer(t, "bob")
	agent := h.agent(t, "agent")
	admin := h.admin(t, "admin")

	h.create(t, alice, "one")
	closed := h.create(t, alice, "two")
	review := h.create(t, bob, "three")
	_, err := h.lifecycle.UpdateStatus(ctx, admin, closed.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	_, err = h.lifecycle.UpdateStatus(ctx, agent, review.ID, domain.TicketStatusReview)
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		stats, err := h.dashboard.Stats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, map[domain.TicketStatus]int{
			domain.TicketStatusActive:  1,
			domain.TicketStatusPending: 0,
			domain.TicketStatusClosed:  1,
			domain.TicketStatusReview:  1,
		}, stats.Tickets)
		require.NotNil(t, stats.Customers)
		// every registered account starts as a customer
		assert.Equal(t, 4, *stats.Customers)
	})

	t.Run("agent", func(t *testing.T) {
		stats, err := h.dashboard.Stats(ctx, agent)
		require.NoError(t, err)
		assert.Equal(t, map[domain.TicketStatus]int{
			domain.TicketStatusActive:  1,
			domain.TicketStatusPending: 0,
			domain.TicketStatusReview:  1,
		}, stats.Tickets)
		assert.Nil(t, stats.Customers)
	})

	t.Run("customer sees own tickets", func(t *testing.T) {
		stats, err := h.dashboard.Stats(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, map[domain.TicketStatus]int{
			domain.TicketStatusActive:  0,
			domain.TicketStatusPending: 0,
			domain.TicketStatusClosed:  0,
			domain.TicketStatusReview:  1,
		}, stats.Tickets)
	})
}
