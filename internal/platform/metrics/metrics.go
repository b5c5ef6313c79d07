package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the common reference service.
type Metrics struct {
	TopologyUpdates     *prometheus.CounterVec
	TopologyRejections  *prometheus.CounterVec
	ParticipantsCreated *prometheus.CounterVec
	ParticipantsDeleted *prometheus.CounterVec
	BatchActions        prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates all metrics on the default Prometheus registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry so suites do not collide on metric names.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TopologyUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coref_topology_updates_total",
			Help: "Topology updates processed, by asserting role and outcome",
		}, []string{"role", "outcome"}),
		TopologyRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coref_topology_rejections_total",
			Help: "Individual rejection reasons returned to market parties",
		}, []string{"role"}),
		ParticipantsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coref_participants_created_total",
			Help: "Participants registered, by market role",
		}, []string{"role"}),
		ParticipantsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coref_participants_deleted_total",
			Help: "Participants removed, by market role",
		}, []string{"role"}),
		BatchActions: factory.NewCounter(prometheus.CounterOpts{
			Name: "coref_batch_actions_total",
			Help: "Individual actions processed through the batch endpoint",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coref_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveUpdate records one processed topology update.
func (m *Metrics) ObserveUpdate(role string, rejections int) {
	outcome := "accepted"
	if rejections > 0 {
		outcome = "rejected"
		m.TopologyRejections.WithLabelValues(role).Add(float64(rejections))
	}
	m.TopologyUpdates.WithLabelValues(role, outcome).Inc()
}
