package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusActive  TicketStatus = "Active"
	TicketStatusPending TicketStatus = "Pending"
	TicketStatusClosed  TicketStatus = "Closed"
	TicketStatusReview  TicketStatus = "Review"
)

// TicketStatuses lists every status in dashboard order.
var TicketStatuses = []TicketStatus{
	TicketStatusActive,
	TicketStatusPending,
	TicketStatusClosed,
	TicketStatusReview,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. The customer fields are a
// snapshot taken at creation and are never rewritten.
type Ticket struct {
	ID            string
	TicketID      string
	Title         string
	Description   string
	Status        TicketStatus
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	Notes         []Note
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
