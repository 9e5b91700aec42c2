package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketNoteAdded     EventType = "ticket_note_added"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketNoteAdded,
	EventTicketDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketCode string `json:"ticket_code"`
	Title      string `json:"title"`
	CustomerID string `json:"customer_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketCode string              `json:"ticket_code"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	TicketCode  string          `json:"ticket_code"`
	NoteID      string          `json:"note_id"`
	NoteType    domain.NoteType `json:"note_type"`
	Backfilled  int             `json:"backfilled,omitempty"`
	TextPreview string          `json:"text_preview"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketCode string `json:"ticket_code"`
	NoteCount  int    `json:"note_count"`
}
