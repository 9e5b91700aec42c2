package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const namespace = "helpdesk"

// Metrics owns the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	ticketsCreated  prometheus.Counter
	ticketsDeleted  prometheus.Counter
	notesAppended   *prometheus.CounterVec
	notesBackfilled prometheus.Counter
	statusChanges   *prometheus.CounterVec
	idFallbacks     prometheus.Counter
	eventFailures   *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		ticketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Tickets created",
		}),
		ticketsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_deleted_total",
			Help:      "Tickets deleted",
		}),
		notesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_appended_total",
			Help:      "Notes appended by note type",
		}, []string{"note_type"}),
		notesBackfilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notes_backfilled_total",
			Help:      "Legacy notes rewritten to the customer note type",
		}),
		statusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_status_transitions_total",
			Help:      "Ticket status transitions",
		}, []string{"from", "to"}),
		idFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_id_placeholders_total",
			Help:      "Ticket codes issued from the placeholder path",
		}),
		eventFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_failures_total",
			Help:      "Event subscriber failures by event type",
		}, []string{"event_type"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordRequest counts a finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// TicketCreated counts a created ticket; placeholder reports whether its code
// came from the fallback path.
func (m *Metrics) TicketCreated(placeholder bool) {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
	if placeholder {
		m.idFallbacks.Inc()
	}
}

// TicketDeleted counts a deleted ticket.
func (m *Metrics) TicketDeleted() {
	if m == nil {
		return
	}
	m.ticketsDeleted.Inc()
}

// NoteAppended counts an appended note and any legacy notes it backfilled.
func (m *Metrics) NoteAppended(noteType domain.NoteType, backfilled int) {
	if m == nil {
		return
	}
	m.notesAppended.WithLabelValues(string(noteType)).Inc()
	m.NotesBackfilled(backfilled)
}

// NotesBackfilled counts legacy notes rewritten.
func (m *Metrics) NotesBackfilled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notesBackfilled.Add(float64(n))
}

// StatusChanged counts a status transition.
func (m *Metrics) StatusChanged(from, to domain.TicketStatus) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(string(from), string(to)).Inc()
}

// EventFailed counts a failed event subscriber.
func (m *Metrics) EventFailed(eventType string) {
	if m == nil {
		return
	}
	m.eventFailures.WithLabelValues(eventType).Inc()
}
