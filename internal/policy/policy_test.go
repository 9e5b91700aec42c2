package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func actorAs(id string, role domain.Role) *domain.Actor {
	return &domain.Actor{ID: id, Name: id, Email: id + "@example.com", Roles: []domain.Role{role}, ActiveRole: role}
}

func TestDecideUpdateStatus(t *testing.T) {
	p := New(NoteAccessOpen)

	cases := []struct {
		name   string
		role   domain.Role
		target domain.TicketStatus
		allow  bool
		status int
	}{
		{"admin closes", domain.RoleAdmin, domain.TicketStatusClosed, true, 0},
		{"admin pends", domain.RoleAdmin, domain.TicketStatusPending, true, 0},
		{"admin cannot review", domain.RoleAdmin, domain.TicketStatusReview, false, http.StatusBadRequest},
		{"agent reviews", domain.RoleAgent, domain.TicketStatusReview, true, 0},
		{"agent reactivates", domain.RoleAgent, domain.TicketStatusActive, true, 0},
		{"agent cannot close", domain.RoleAgent, domain.TicketStatusClosed, false, http.StatusBadRequest},
		{"agent unknown status", domain.RoleAgent, domain.TicketStatus("Done"), false, http.StatusBadRequest},
		{"customer forbidden", domain.RoleCustomer, domain.TicketStatusActive, false, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := p.Decide(actorAs("u1", tc.role), OpUpdateStatus, &Resource{TargetStatus: tc.target})
			assert.Equal(t, tc.allow, d.Allowed)
			if !tc.allow {
				assert.Equal(t, tc.status, apperrors.StatusOf(d.Err()))
			}
		})
	}
}

func TestDecideUpdateStatusReason(t *testing.T) {
	d := New(NoteAccessOpen).Decide(actorAs("a", domain.RoleAgent), OpUpdateStatus, &Resource{TargetStatus: domain.TicketStatusClosed})
	assert.Equal(t, "Invalid status for agent", d.Reason)
}

func TestDecideDelete(t *testing.T) {
	p := New(NoteAccessOpen)
	res := &Resource{CustomerID: "owner"}

	assert.True(t, p.Decide(actorAs("owner", domain.RoleCustomer), OpDeleteTicket, res).Allowed)
	assert.True(t, p.Decide(actorAs("boss", domain.RoleAdmin), OpDeleteTicket, res).Allowed)

	d := p.Decide(actorAs("other", domain.RoleCustomer), OpDeleteTicket, res)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Not authorized to delete this ticket", d.Reason)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(d.Err()))

	assert.False(t, p.Decide(actorAs("agent", domain.RoleAgent), OpDeleteTicket, res).Allowed)
}

func TestDecideDeleteUsesActiveRoleOnly(t *testing.T) {
	// holds admin but logged in as customer
	actor := &domain.Actor{ID: "x", Roles: []domain.Role{domain.RoleCustomer, domain.RoleAdmin}, ActiveRole: domain.RoleCustomer}
	d := New(NoteAccessOpen).Decide(actor, OpDeleteTicket, &Resource{CustomerID: "owner"})
	assert.False(t, d.Allowed)
}

func TestResourceOwnedBy(t *testing.T) {
	owner := actorAs("owner", domain.RoleCustomer)
	res := ResourceFor(&domain.Ticket{CustomerID: "owner"})

	assert.True(t, res.OwnedBy(owner))
	assert.False(t, res.OwnedBy(actorAs("other", domain.RoleCustomer)))
	assert.False(t, res.OwnedBy(nil))
	assert.False(t, (*Resource)(nil).OwnedBy(owner))
	assert.False(t, (&Resource{}).OwnedBy(&domain.Actor{}))
}

func TestListScope(t *testing.T) {
	p := New(NoteAccessOpen)

	scope, ok := p.ListScopeFor(actorAs("a", domain.RoleAdmin))
	assert.True(t, ok)
	assert.True(t, scope.Includes(domain.TicketStatusClosed))

	scope, ok = p.ListScopeFor(actorAs("g", domain.RoleAgent))
	assert.True(t, ok)
	assert.False(t, scope.Includes(domain.TicketStatusClosed))
	assert.True(t, scope.Includes(domain.TicketStatusReview))

	_, ok = p.ListScopeFor(actorAs("c", domain.RoleCustomer))
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(p.Decide(actorAs("c", domain.RoleCustomer), OpListAll, nil).Err()))
}

func TestDecideAddNote(t *testing.T) {
	closed := &Resource{CustomerID: "owner", Status: domain.TicketStatusClosed}

	t.Run("open mode allows anyone", func(t *testing.T) {
		p := New(NoteAccessOpen)
		assert.True(t, p.Decide(actorAs("stranger", domain.RoleCustomer), OpAddNote, closed).Allowed)
	})

	t.Run("restricted mode", func(t *testing.T) {
		p := New(NoteAccessRestricted)
		assert.True(t, p.Decide(actorAs("owner", domain.RoleCustomer), OpAddNote, closed).Allowed)
		assert.True(t, p.Decide(actorAs("boss", domain.RoleAdmin), OpAddNote, closed).Allowed)
		assert.False(t, p.Decide(actorAs("agent", domain.RoleAgent), OpAddNote, closed).Allowed)
		assert.False(t, p.Decide(actorAs("stranger", domain.RoleCustomer), OpAddNote, closed).Allowed)

		active := &Resource{CustomerID: "owner", Status: domain.TicketStatusActive}
		assert.True(t, p.Decide(actorAs("agent", domain.RoleAgent), OpAddNote, active).Allowed)
	})
}

func TestDecideRequiresActor(t *testing.T) {
	assert.False(t, New(NoteAccessOpen).Decide(nil, OpCreateTicket, nil).Allowed)
	assert.True(t, New(NoteAccessOpen).Decide(actorAs("c", domain.RoleCustomer), OpCreateTicket, nil).Allowed)
}

func TestAllowedStatusesIsCopy(t *testing.T) {
	got := AllowedStatuses(domain.RoleAdmin)
	got[0] = domain.TicketStatusReview
	assert.Equal(t, domain.TicketStatusActive, AllowedStatuses(domain.RoleAdmin)[0])
	assert.Empty(t, AllowedStatuses(domain.RoleCustomer))
}

func TestParseNoteAccess(t *testing.T) {
	assert.Equal(t, NoteAccessRestricted, ParseNoteAccess("restricted"))
	assert.Equal(t, NoteAccessOpen, ParseNoteAccess("whatever"))
}
