package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketDependencies bundles what the ticket and note services need.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Policy     *policy.Policy
	IDs        *ticketid.Generator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
}

func (d TicketDependencies) withDefaults() TicketDependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.IDs == nil {
		d.IDs = ticketid.NewGenerator("", nil, d.Logger)
	}
	return d
}

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	policy     *policy.Policy
	ids        *ticketid.Generator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	deps = deps.withDefaults()
	return &TicketService{
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		ids:        deps.IDs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
}

// Create opens a ticket with actor as its customer.
func (s *TicketService) Create(ctx context.Context, actor *domain.Actor, title, description string) (*domain.Ticket, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("Please provide title and description", nil)
	}
	if decision := s.policy.Decide(actor, policy.OpCreateTicket, nil); !decision.Allowed {
		return nil, decision.Err()
	}

	ticket := &domain.Ticket{
		TicketID:      s.ids.Next(ctx),
		Title:         title,
		Description:   description,
		Status:        domain.TicketStatusActive,
		CustomerID:    actor.ID,
		CustomerName:  actor.Name,
		CustomerEmail: actor.Email,
		Notes:         []domain.Note{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Ticket ID already exists", map[string]any{"ticketId": ticket.TicketID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.TicketCreated(s.ids.IsPlaceholder(ticket.TicketID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			TicketCode: ticket.TicketID,
			Title:      ticket.Title,
			CustomerID: ticket.CustomerID,
		},
	})
	return ticket, nil
}

// UpdateStatus moves the ticket identified by ref to status. The role check
// runs before the lookup, so a rejected request never reads storage.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.Actor, ref string, status domain.TicketStatus) (*domain.Ticket, error) {
	if decision := s.policy.Decide(actor, policy.OpUpdateStatus, &policy.Resource{TargetStatus: status}); !decision.Allowed {
		return nil, decision.Err()
	}

	ticket, err := resolveTicket(ctx, s.tickets, s.ids, ref)
	if err != nil {
		return nil, err
	}

	previous := ticket.Status
	ticket.Status = status
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ref)
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.StatusChanged(previous, status)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			TicketCode: ticket.TicketID,
			OldStatus:  previous,
			NewStatus:  status,
		},
	})
	return ticket, nil
}

// Delete removes the ticket and its notes.
func (s *TicketService) Delete(ctx context.Context, actor *domain.Actor, ref string) error {
	ticket, err := resolveTicket(ctx, s.tickets, s.ids, ref)
	if err != nil {
		return err
	}
	if decision := s.policy.Decide(actor, policy.OpDeleteTicket, policy.ResourceFor(ticket)); !decision.Allowed {
		return decision.Err()
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ticketNotFound(ref)
		}
		return apperrors.MapError(err)
	}

	s.metrics.TicketDeleted()
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketDeletedPayload{
			TicketCode: ticket.TicketID,
			NoteCount:  len(ticket.Notes),
		},
	})
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.clock, event)
}

// resolveTicket loads a ticket by storage id or by ticket code. Anything
// that is neither is reported as not found.
func resolveTicket(ctx context.Context, tickets repository.TicketRepository, ids *ticketid.Generator, ref string) (*domain.Ticket, error) {
	ref = strings.TrimSpace(ref)

	var (
		ticket *domain.Ticket
		err    error
	)
	switch {
	case ids.Matches(ref):
		ticket, err = tickets.GetByTicketID(ctx, ref)
	default:
		if _, parseErr := uuid.Parse(ref); parseErr != nil {
			return nil, ticketNotFound(ref)
		}
		ticket, err = tickets.GetByID(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ref)
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func ticketNotFound(ref string) error {
	return apperrors.NewNotFound("Ticket", map[string]any{"ticketId": ref})
}

func eventActor(actor *domain.Actor) events.Actor {
	return events.Actor{ID: actor.ID, Role: actor.ActiveRole}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, clock func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clock().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}
