package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Text string `json:"text"`
}

// TicketResponse is a ticket with its full note log.
type TicketResponse struct {
	ID            string              `json:"id"`
	TicketID      string              `json:"ticketId"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Status        domain.TicketStatus `json:"status"`
	CustomerID    string              `json:"customerId"`
	CustomerName  string              `json:"customerName"`
	CustomerEmail string              `json:"customerEmail"`
	Notes         []NoteResponse      `json:"notes"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// NoteAuthorResponse snapshots the note author.
type NoteAuthorResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// NoteResponse is one note. AddedAt uses domain.NoteTimeLayout.
type NoteResponse struct {
	ID       string             `json:"id"`
	Text     string             `json:"text"`
	AddedBy  NoteAuthorResponse `json:"addedBy"`
	AddedAt  string             `json:"addedAt"`
	NoteType domain.NoteType    `json:"noteType"`
}

// TicketListResponse wraps listAll results with their count.
type TicketListResponse struct {
	Count int              `json:"count"`
	Data  []TicketResponse `json:"data"`
}

// DashboardStatsResponse carries per-status counts.
type DashboardStatsResponse struct {
	Tickets map[domain.TicketStatus]int `json:"tickets"`
	Users   *int                        `json:"users,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	notes := make([]NoteResponse, 0, len(ticket.Notes))
	for i := range ticket.Notes {
		notes = append(notes, NewNoteResponse(&ticket.Notes[i]))
	}
	return TicketResponse{
		ID:            ticket.ID,
		TicketID:      ticket.TicketID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Status:        ticket.Status,
		CustomerID:    ticket.CustomerID,
		CustomerName:  ticket.CustomerName,
		CustomerEmail: ticket.CustomerEmail,
		Notes:         notes,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewNoteResponse maps a note; legacy notes are presented as customer notes.
func NewNoteResponse(note *domain.Note) NoteResponse {
	return NoteResponse{
		ID:   note.ID,
		Text: note.Text,
		AddedBy: NoteAuthorResponse{
			ID:    note.AddedBy.ID,
			Name:  note.AddedBy.Name,
			Email: note.AddedBy.Email,
			Role:  note.AddedBy.Role,
		},
		AddedAt:  note.AddedAt.UTC().Format(domain.NoteTimeLayout),
		NoteType: note.EffectiveType(),
	}
}
