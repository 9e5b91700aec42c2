package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/tickets", "POST", 201, 5*time.Millisecond)
	m.RecordError("/api/tickets", "POST", "VALIDATION_FAILED")
	m.TicketCreated(true)
	m.NoteAppended(domain.NoteTypeAgent, 2)
	m.StatusChanged(domain.TicketStatusActive, domain.TicketStatusClosed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/tickets", "POST", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/api/tickets", "POST", "VALIDATION_FAILED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.idFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notesBackfilled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusChanges.WithLabelValues("Active", "Closed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.TicketCreated(false)
		m.NoteAppended(domain.NoteTypeCustomer, 0)
		m.EventFailed("ticket_created")
	})
}
