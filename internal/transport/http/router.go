// Package httptransport is the thin HTTP layer. Handlers decode requests,
// enforce transport-level checks (auth, sender identity), and delegate to the
// domain services without embedding business logic.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coref/internal/batch"
	"coref/internal/domain"
	"coref/internal/platform/metrics"
	"coref/internal/platform/middleware"
	"coref/internal/query"
	"coref/internal/reconcile"
	"coref/internal/registry"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	mode       domain.Mode
	reconciler *reconcile.Service
	queries    *query.Service
	processor  *batch.Processor
	registries registry.Registries
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewHandler builds the HTTP handler set.
func NewHandler(
	mode domain.Mode,
	reconciler *reconcile.Service,
	queries *query.Service,
	processor *batch.Processor,
	registries registry.Registries,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		mode:       mode,
		reconciler: reconciler,
		queries:    queries,
		processor:  processor,
		registries: registries,
		logger:     logger,
		metrics:    m,
	}
}

// NewRouter wires all endpoints with the shared middleware chain.
func NewRouter(h *Handler, validator middleware.PartyValidator, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Duration(h.metrics.RequestDuration))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/topology", func(r chi.Router) {
		r.Use(middleware.RequireParty(validator, h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Post("/congestion-points", h.handleCongestionPointUpdate)
		r.Post("/aggregator-connections", h.handleAggregatorUpdate)
		r.Post("/brp-connections", h.handleBRPUpdate)
		r.Get("/congestion-points/{entityAddress}", h.handleCongestionPointQuery)
		r.Get("/connections", h.handleConnectionsQuery)
	})

	r.Route("/admin/participants/{role}", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, h.logger))
		r.Use(middleware.ContentTypeJSON)
		r.Get("/", h.handleParticipantList)
		r.Post("/", h.handleParticipantCreate)
		r.Get("/{domain}", h.handleParticipantFind)
		r.Delete("/{domain}", h.handleParticipantDelete)
		r.Post("/batch", h.handleParticipantBatch)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
