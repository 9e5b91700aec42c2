package service

import (
	"context"
	"slices"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// DirectoryService serves role-scoped ticket listings.
type DirectoryService struct {
	tickets repository.TicketRepository
	policy  *policy.Policy
}

// NewDirectoryService constructs the service.
func NewDirectoryService(tickets repository.TicketRepository, p *policy.Policy) *DirectoryService {
	return &DirectoryService{tickets: tickets, policy: p}
}

// ListMine returns the actor's own tickets in every status, newest first.
func (s *DirectoryService) ListMine(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if decision := s.policy.Decide(actor, policy.OpListMine, nil); !decision.Allowed {
		return nil, decision.Err()
	}
	customerID := actor.ID
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		CustomerID: &customerID,
		Order:      repository.OrderCreatedDesc,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns every ticket the actor's role may see, in display order.
func (s *DirectoryService) ListAll(ctx context.Context, actor *domain.Actor) ([]domain.Ticket, error) {
	if decision := s.policy.Decide(actor, policy.OpListAll, nil); !decision.Allowed {
		return nil, decision.Err()
	}
	scope, _ := s.policy.ListScopeFor(actor)

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		ExcludeStatuses: scope.ExcludeStatuses,
		Order:           repository.OrderUpdatedDesc,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	SortForDisplay(tickets)
	return tickets, nil
}

// SortForDisplay orders tickets in place: open work first, then Review, then
// Closed, each group most recently updated first. Equal keys keep their order.
func SortForDisplay(tickets []domain.Ticket) {
	slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
		if ra, rb := displayRank(a.Status), displayRank(b.Status); ra != rb {
			return ra - rb
		}
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

func displayRank(status domain.TicketStatus) int {
	switch status {
	case domain.TicketStatusClosed:
		return 2
	case domain.TicketStatusReview:
		return 1
	default:
		return 0
	}
}
