package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const notePreviewLen = 80

// NoteService appends to a ticket's note log.
type NoteService struct {
	tickets    repository.TicketRepository
	policy     *policy.Policy
	ids        *ticketid.Generator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	clock      func() time.Time
}

// NewNoteService constructs the service.
func NewNoteService(deps TicketDependencies) *NoteService {
	deps = deps.withDefaults()
	return &NoteService{
		tickets:    deps.TicketRepo,
		policy:     deps.Policy,
		ids:        deps.IDs,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		clock:      deps.Clock,
	}
}

// Append adds a note authored by actor. Legacy notes on the ticket are
// tagged as customer notes in the same atomic step.
func (s *NoteService) Append(ctx context.Context, actor *domain.Actor, ref, text string) (*domain.Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("Note text is required", nil)
	}

	ticket, err := resolveTicket(ctx, s.tickets, s.ids, ref)
	if err != nil {
		return nil, err
	}
	if decision := s.policy.Decide(actor, policy.OpAddNote, policy.ResourceFor(ticket)); !decision.Allowed {
		return nil, decision.Err()
	}

	backfilled := 0
	note, err := s.tickets.AppendNote(ctx, ticket.ID, func(locked *domain.Ticket) (*domain.Note, error) {
		backfilled = domain.BackfillNoteTypes(locked.Notes)
		return &domain.Note{
			Text: text,
			AddedBy: domain.NoteAuthor{
				ID:    actor.ID,
				Name:  actor.Name,
				Email: actor.Email,
				Role:  actor.ActiveRole,
			},
			AddedAt:  domain.TruncateToMinute(s.clock()),
			NoteType: domain.NoteTypeForRole(actor.ActiveRole),
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ticketNotFound(ref)
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.NoteAppended(note.NoteType, backfilled)
	publish(ctx, s.dispatcher, s.clock, events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketNoteAddedPayload{
			TicketCode:  ticket.TicketID,
			NoteID:      note.ID,
			NoteType:    note.NoteType,
			Backfilled:  backfilled,
			TextPreview: preview(note.Text),
		},
	})
	return note, nil
}

// BackfillAll tags every legacy note in storage as a customer note and
// returns how many were rewritten. Running it again returns zero.
func (s *NoteService) BackfillAll(ctx context.Context) (int, error) {
	n, err := s.tickets.BackfillNoteTypes(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	s.metrics.NotesBackfilled(int(n))
	s.logger.Info("legacy notes backfilled", zap.Int64("count", n))
	return int(n), nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= notePreviewLen {
		return text
	}
	return string(runes[:notePreviewLen]) + "..."
}
