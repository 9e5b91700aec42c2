package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// stepClock advances one minute per reading so successive writes get
// distinct timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 9, 0, 30, 500, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	tickets    *repository.MemoryTicketRepository
	users      *repository.MemoryUserRepository
	dispatcher *recordingDispatcher
	clock      *stepClock

	auth      *AuthService
	lifecycle *TicketService
	notes     *NoteService
	directory *DirectoryService
	dashboard *DashboardService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	noteAccess policy.NoteAccess
	selfEnroll bool
	counter    ticketid.CounterStore
}

func withNoteAccess(mode policy.NoteAccess) harnessOption {
	return func(c *harnessConfig) { c.noteAccess = mode }
}

func withSelfEnroll() harnessOption {
	return func(c *harnessConfig) { c.selfEnroll = true }
}

func withCounter(store ticketid.CounterStore) harnessOption {
	return func(c *harnessConfig) { c.counter = store }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{noteAccess: policy.NoteAccessOpen, counter: ticketid.NewMemoryStore(0)}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{
		tickets:    repository.NewMemoryTicketRepository(),
		users:      repository.NewMemoryUserRepository(),
		dispatcher: &recordingDispatcher{},
		clock:      newStepClock(),
	}
	h.tickets.SetClock(h.clock.Now)

	p := policy.New(cfg.noteAccess)
	deps := TicketDependencies{
		TicketRepo: h.tickets,
		Policy:     p,
		IDs:        ticketid.NewGenerator("TKT", cfg.counter, nil),
		Dispatcher: h.dispatcher,
		Clock:      h.clock.Now,
	}
	h.auth = NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
		AllowRoleSelfEnroll:   cfg.selfEnroll,
	}, AuthDependencies{UserRepo: h.users, Policy: p})
	h.lifecycle = NewTicketService(deps)
	h.notes = NewNoteService(deps)
	h.directory = NewDirectoryService(h.tickets, p)
	h.dashboard = NewDashboardService(h.tickets, h.users, p)
	return h
}

// actor registers a user holding roles and returns them acting as active.
func (h *harness) actor(t *testing.T, name string, active domain.Role, roles ...domain.Role) *domain.Actor {
	t.Helper()
	ctx := context.Background()
	user, err := h.auth.Register(ctx, name, name+"@example.com", "secret")
	require.NoError(t, err)
	if len(roles) > 0 {
		user.Roles = roles
		require.NoError(t, h.users.Update(ctx, user))
	}
	actor, err := domain.NewActor(user, active)
	require.NoError(t, err)
	return actor
}

func (h *harness) customer(t *testing.T, name string) *domain.Actor {
	return h.actor(t, name, domain.RoleCustomer)
}

func (h *harness) agent(t *testing.T, name string) *domain.Actor {
	return h.actor(t, name, domain.RoleAgent, domain.RoleCustomer, domain.RoleAgent)
}

func (h *harness) admin(t *testing.T, name string) *domain.Actor {
	return h.actor(t, name, domain.RoleAdmin, domain.RoleCustomer, domain.RoleAdmin)
}

func (h *harness) create(t *testing.T, actor *domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := h.lifecycle.Create(context.Background(), actor, title, title+" description")
	require.NoError(t, err)
	return ticket
}

func requireStatus(t *testing.T, want int, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, apperrors.StatusOf(err), err.Error())
}
