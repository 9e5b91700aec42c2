package repository

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. Every method takes
// the store lock, which also serializes note appends.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	order   []string
	clock   func() time.Time
}

// NewMemoryTicketRepository returns an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		clock:   time.Now,
	}
}

// SetClock overrides the timestamp source.
func (r *MemoryTicketRepository) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tickets {
		if existing.TicketID == ticket.TicketID {
			return ErrDuplicate
		}
	}

	now := r.clock().UTC()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if ticket.Notes == nil {
		ticket.Notes = []domain.Note{}
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *MemoryTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = ticket.Status
	stored.UpdatedAt = r.clock().UTC()
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryTicketRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(r.tickets, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(stored), nil
}

func (r *MemoryTicketRepository) GetByTicketID(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stored := range r.tickets {
		if stored.TicketID == code {
			return cloneTicket(stored), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []domain.Ticket{}
	for _, id := range r.order {
		stored := r.tickets[id]
		if matches(stored, filter) {
			result = append(result, *cloneTicket(stored))
		}
	}

	slices.SortStableFunc(result, func(a, b domain.Ticket) int {
		if filter.Order == OrderUpdatedDesc {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (r *MemoryTicketRepository) CountByStatus(_ context.Context, filter TicketFilter) (map[domain.TicketStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[domain.TicketStatus]int{}
	for _, stored := range r.tickets {
		if matches(stored, filter) {
			counts[stored.Status]++
		}
	}
	return counts, nil
}

func (r *MemoryTicketRepository) AppendNote(_ context.Context, ticketID string, fn NoteAppendFunc) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}

	working := cloneTicket(stored)
	note, err := fn(working)
	if err != nil {
		return nil, err
	}

	note.ID = uuid.NewString()
	working.Notes = append(working.Notes, *note)
	working.UpdatedAt = r.clock().UTC()
	r.tickets[ticketID] = working
	return note, nil
}

func (r *MemoryTicketRepository) BackfillNoteTypes(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	for _, stored := range r.tickets {
		changed += int64(domain.BackfillNoteTypes(stored.Notes))
	}
	return changed, nil
}

func (r *MemoryTicketRepository) MaxSequentialCode(_ context.Context, prefix string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var highest int64
	for _, stored := range r.tickets {
		digits, ok := strings.CutPrefix(stored.TicketID, prefix)
		if !ok || digits == "" || strings.Trim(digits, "0123456789") != "" {
			continue
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return highest, nil
}

// Seed stores ticket verbatim, notes included. It exists for loading legacy
// fixtures and performs no validation.
func (r *MemoryTicketRepository) Seed(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if _, exists := r.tickets[ticket.ID]; !exists {
		r.order = append(r.order, ticket.ID)
	}
	r.tickets[ticket.ID] = cloneTicket(&ticket)
}

func matches(ticket *domain.Ticket, filter TicketFilter) bool {
	if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
		return false
	}
	return !slices.Contains(filter.ExcludeStatuses, ticket.Status)
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	out := *t
	out.Notes = append([]domain.Note{}, t.Notes...)
	return &out
}
