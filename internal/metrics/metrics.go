package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the letter workflow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LettersSubmitted    prometheus.Counter
	LetterTransitions   *prometheus.CounterVec
	TransitionConflicts prometheus.Counter
	LettersDeleted      prometheus.Counter
	Notifications       *prometheus.CounterVec
	PublicLookups       *prometheus.CounterVec
}

// New registers metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LettersSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "letterdesk_letters_submitted_total",
			Help: "Total number of letters submitted",
		}),
		LetterTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letterdesk_letter_transitions_total",
			Help: "Letters moved out of Pending, by resulting status",
		}, []string{"status"}),
		TransitionConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "letterdesk_letter_transition_conflicts_total",
			Help: "Transitions refused because the letter was no longer pending",
		}),
		LettersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "letterdesk_letters_deleted_total",
			Help: "Total number of letters deleted",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letterdesk_notifications_total",
			Help: "Notification attempts by event kind and outcome",
		}, []string{"event", "delivered"}),
		PublicLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "letterdesk_public_lookups_total",
			Help: "Public verification lookups by outcome",
		}, []string{"found"}),
	}
}

func (m *Metrics) IncSubmitted() {
	if m == nil {
		return
	}
	m.LettersSubmitted.Inc()
}

func (m *Metrics) IncTransition(status string) {
	if m == nil {
		return
	}
	m.LetterTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncTransitionConflict() {
	if m == nil {
		return
	}
	m.TransitionConflicts.Inc()
}

func (m *Metrics) IncDeleted() {
	if m == nil {
		return
	}
	m.LettersDeleted.Inc()
}

func (m *Metrics) ObserveNotification(event string, delivered bool) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(event, strconv.FormatBool(delivered)).Inc()
}

func (m *Metrics) ObserveLookup(found bool) {
	if m == nil {
		return
	}
	m.PublicLookups.WithLabelValues(strconv.FormatBool(found)).Inc()
}
