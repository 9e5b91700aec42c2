package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func ticketCodes(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, t := range tickets {
		out[i] = t.TicketID
	}
	return out
}

func TestListMineReturnsExactlyOwnTickets(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.customer(t, "alice")
	bob := h.customer(t, "bob")
	admin := h.admin(t, "admin")

	a1 := h.create(t, alice, "one")
	h.create(t, bob, "two")
	a2 := h.create(t, alice, "three")
	_, err := h.lifecycle.UpdateStatus(ctx, admin, a1.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	mine, err := h.directory.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{a2.TicketID, a1.TicketID}, ticketCodes(mine))

	none, err := h.directory.ListMine(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.customer(t, "alice")
	agent := h.agent(t, "agent")
	admin := h.admin(t, "admin")

	active := h.create(t, alice, "active")
	closed := h.create(t, alice, "closed")
	review := h.create(t, alice, "review")
	pending := h.create(t, alice, "pending")

	_, err := h.lifecycle.UpdateStatus(ctx, admin, closed.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	_, err = h.lifecycle.UpdateStatus(ctx, agent, review.ID, domain.TicketStatusReview)
	require.NoError(t, err)
	_, err = h.lifecycle.UpdateStatus(ctx, agent, pending.ID, domain.TicketStatusPending)
	require.NoError(t, err)

	t.Run("customer is forbidden", func(t *testing.T) {
		_, err := h.directory.ListAll(ctx, alice)
		requireStatus(t, http.StatusForbidden, err)
	})

	t.Run("agent never sees closed", func(t *testing.T) {
		tickets, err := h.directory.ListAll(ctx, agent)
		require.NoError(t, err)
		assert.Equal(t, []string{pending.TicketID, active.TicketID, review.TicketID}, ticketCodes(tickets))
	})

	t.Run("admin sees everything in display order", func(t *testing.T) {
		tickets, err := h.directory.ListAll(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []string{pending.TicketID, active.TicketID, review.TicketID, closed.TicketID}, ticketCodes(tickets))
	})
}

func TestSortForDisplay(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		{TicketID: "closed-new", Status: domain.TicketStatusClosed, UpdatedAt: base.Add(5 * time.Hour)},
		{TicketID: "review-old", Status: domain.TicketStatusReview, UpdatedAt: base.Add(1 * time.Hour)},
		{TicketID: "active-old", Status: domain.TicketStatusActive, UpdatedAt: base},
		{TicketID: "review-new", Status: domain.TicketStatusReview, UpdatedAt: base.Add(4 * time.Hour)},
		{TicketID: "pending-new", Status: domain.TicketStatusPending, UpdatedAt: base.Add(3 * time.Hour)},
		{TicketID: "closed-old", Status: domain.TicketStatusClosed, UpdatedAt: base},
		{TicketID: "tie-a", Status: domain.TicketStatusActive, UpdatedAt: base.Add(2 * time.Hour)},
		{TicketID: "tie-b", Status: domain.TicketStatusPending, UpdatedAt: base.Add(2 * time.Hour)},
	}

	SortForDisplay(tickets)

	assert.Equal(t, []string{
		"pending-new", "tie-a", "tie-b", "active-old",
		"review-new", "review-old",
		"closed-new", "closed-old",
	}, ticketCodes(tickets))
}
