// Package policy decides whether an actor may perform a ticket operation.
// Decisions are pure: they read the actor, the operation and the resource
// snapshot handed in, and never touch storage.
package policy

import (
	"fmt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Operation names a gated ticket operation.
type Operation string

const (
	OpCreateTicket Operation = "create_ticket"
	OpListMine     Operation = "list_mine"
	OpListAll      Operation = "list_all"
	OpAddNote      Operation = "add_note"
	OpDeleteTicket Operation = "delete_ticket"
	OpUpdateStatus Operation = "update_status"
	OpViewStats    Operation = "view_stats"
	OpManageRoles  Operation = "manage_roles"
)

// NoteAccess selects who may append notes to a ticket.
type NoteAccess string

const (
	// NoteAccessOpen lets any authenticated actor note any ticket.
	NoteAccessOpen NoteAccess = "open"
	// NoteAccessRestricted limits notes to the owner and to staff who can list the ticket.
	NoteAccessRestricted NoteAccess = "restricted"
)

// ParseNoteAccess falls back to open for unknown values.
func ParseNoteAccess(val string) NoteAccess {
	if NoteAccess(val) == NoteAccessRestricted {
		return NoteAccessRestricted
	}
	return NoteAccessOpen
}

// Resource is the ticket snapshot an operation targets.
type Resource struct {
	CustomerID   string
	Status       domain.TicketStatus
	TargetStatus domain.TicketStatus
}

// ResourceFor snapshots ticket for a decision.
func ResourceFor(ticket *domain.Ticket) *Resource {
	if ticket == nil {
		return nil
	}
	return &Resource{CustomerID: ticket.CustomerID, Status: ticket.Status}
}

// OwnedBy reports whether actor is the ticket's customer.
func (r *Resource) OwnedBy(actor *domain.Actor) bool {
	return r != nil && actor != nil && r.CustomerID != "" && r.CustomerID == actor.ID
}

// DenyKind distinguishes a forbidden caller from an invalid request.
type DenyKind int

const (
	DenyForbidden DenyKind = iota + 1
	DenyInvalid
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Kind    DenyKind
	Reason  string
}

// Allow is the permitting decision.
var Allow = Decision{Allowed: true}

func forbid(reason string) Decision {
	return Decision{Kind: DenyForbidden, Reason: reason}
}

func invalid(reason string) Decision {
	return Decision{Kind: DenyInvalid, Reason: reason}
}

// Err converts a denial into the matching domain error; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Kind == DenyInvalid {
		return apperrors.NewValidationError(d.Reason, nil)
	}
	return apperrors.NewForbidden(d.Reason)
}

var statusesByRole = map[domain.Role][]domain.TicketStatus{
	domain.RoleAdmin: {domain.TicketStatusActive, domain.TicketStatusPending, domain.TicketStatusClosed},
	domain.RoleAgent: {domain.TicketStatusActive, domain.TicketStatusPending, domain.TicketStatusReview},
}

// AllowedStatuses returns the target statuses role may set. Customers get none.
func AllowedStatuses(role domain.Role) []domain.TicketStatus {
	allowed := statusesByRole[role]
	out := make([]domain.TicketStatus, len(allowed))
	copy(out, allowed)
	return out
}

// ListScope describes which tickets a listAll call may see.
type ListScope struct {
	ExcludeStatuses []domain.TicketStatus
}

// Includes reports whether a ticket in status is inside the scope.
func (s ListScope) Includes(status domain.TicketStatus) bool {
	for _, excluded := range s.ExcludeStatuses {
		if excluded == status {
			return false
		}
	}
	return true
}

// Policy holds the configurable parts of the rule set.
type Policy struct {
	noteAccess NoteAccess
}

// New builds a policy.
func New(noteAccess NoteAccess) *Policy {
	if noteAccess == "" {
		noteAccess = NoteAccessOpen
	}
	return &Policy{noteAccess: noteAccess}
}

// NoteAccess reports the configured note mode.
func (p *Policy) NoteAccess() NoteAccess {
	return p.noteAccess
}

// ListScopeFor returns the listAll scope for actor, or false when the actor
// may not list all tickets.
func (p *Policy) ListScopeFor(actor *domain.Actor) (ListScope, bool) {
	switch actor.ActiveRole {
	case domain.RoleAdmin:
		return ListScope{}, true
	case domain.RoleAgent:
		return ListScope{ExcludeStatuses: []domain.TicketStatus{domain.TicketStatusClosed}}, true
	default:
		return ListScope{}, false
	}
}

// Decide evaluates op for actor against res. res may be nil for operations
// that do not target a ticket.
func (p *Policy) Decide(actor *domain.Actor, op Operation, res *Resource) Decision {
	if actor == nil || actor.ID == "" {
		return forbid("authentication required")
	}

	switch op {
	case OpCreateTicket, OpListMine, OpViewStats:
		return Allow
	case OpListAll:
		if _, ok := p.ListScopeFor(actor); ok {
			return Allow
		}
		return forbid("Not authorized to view all tickets")
	case OpAddNote:
		return p.decideAddNote(actor, res)
	case OpDeleteTicket:
		if res != nil && (res.OwnedBy(actor) || actor.Is(domain.RoleAdmin)) {
			return Allow
		}
		return forbid("Not authorized to delete this ticket")
	case OpUpdateStatus:
		return decideUpdateStatus(actor, res)
	case OpManageRoles:
		if actor.Is(domain.RoleAdmin) {
			return Allow
		}
		return forbid("admin role required")
	default:
		return forbid(fmt.Sprintf("unknown operation %q", op))
	}
}

func (p *Policy) decideAddNote(actor *domain.Actor, res *Resource) Decision {
	if p.noteAccess == NoteAccessOpen {
		return Allow
	}
	if res == nil {
		return forbid("Not authorized to add notes to this ticket")
	}
	if res.OwnedBy(actor) {
		return Allow
	}
	if scope, ok := p.ListScopeFor(actor); ok && scope.Includes(res.Status) {
		return Allow
	}
	return forbid("Not authorized to add notes to this ticket")
}

func decideUpdateStatus(actor *domain.Actor, res *Resource) Decision {
	allowed, ok := statusesByRole[actor.ActiveRole]
	if !ok {
		return forbid("Not authorized to update ticket status")
	}
	if res != nil {
		for _, status := range allowed {
			if status == res.TargetStatus {
				return Allow
			}
		}
	}
	return invalid(fmt.Sprintf("Invalid status for %s", actor.ActiveRole))
}
