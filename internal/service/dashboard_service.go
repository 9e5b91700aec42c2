package service

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DashboardStats holds per-status ticket counts for one role's view.
// Customers is set only for admins.
type DashboardStats struct {
	Tickets   map[domain.TicketStatus]int
	Customers *int
}

// DashboardService computes dashboard counters.
type DashboardService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	policy  *policy.Policy
}

// NewDashboardService constructs the service.
func NewDashboardService(tickets repository.TicketRepository, users repository.UserRepository, p *policy.Policy) *DashboardService {
	return &DashboardService{tickets: tickets, users: users, policy: p}
}

// Stats returns counts scoped to the actor's active role.
func (s *DashboardService) Stats(ctx context.Context, actor *domain.Actor) (*DashboardStats, error) {
	if decision := s.policy.Decide(actor, policy.OpViewStats, nil); !decision.Allowed {
		return nil, decision.Err()
	}

	var (
		filter repository.TicketFilter
		keys   []domain.TicketStatus
	)
	switch actor.ActiveRole {
	case domain.RoleAdmin:
		keys = domain.TicketStatuses
	case domain.RoleAgent:
		scope, _ := s.policy.ListScopeFor(actor)
		filter.ExcludeStatuses = scope.ExcludeStatuses
		keys = []domain.TicketStatus{domain.TicketStatusActive, domain.TicketStatusPending, domain.TicketStatusReview}
	default:
		customerID := actor.ID
		filter.CustomerID = &customerID
		keys = []domain.TicketStatus{domain.TicketStatusActive, domain.TicketStatusPending, domain.TicketStatusClosed}
	}

	counts, err := s.tickets.CountByStatus(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := &DashboardStats{Tickets: make(map[domain.TicketStatus]int, len(keys))}
	for _, key := range keys {
		stats.Tickets[key] = 0
	}
	for status, n := range counts {
		stats.Tickets[status] = n
	}

	if actor.Is(domain.RoleAdmin) {
		n, err := s.users.CountWithRole(ctx, domain.RoleCustomer)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		stats.Customers = &n
	}
	return stats, nil
}
