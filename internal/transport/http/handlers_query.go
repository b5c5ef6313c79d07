package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
	"coref/pkg/platform/httputil"
)

func (h *Handler) handleCongestionPointQuery(w http.ResponseWriter, r *http.Request) {
	entityAddress := chi.URLParam(r, "entityAddress")
	detail, err := h.queries.CongestionPoint(r.Context(), entityAddress)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// handleConnectionsQuery lists connections by claiming party. Exactly one of
// the aggregator and brp filters must be given.
func (h *Handler) handleConnectionsQuery(w http.ResponseWriter, r *http.Request) {
	aggregator := r.URL.Query().Get("aggregator")
	brp := r.URL.Query().Get("brp")

	var (
		conns []*domain.Connection
		err   error
	)
	switch {
	case aggregator != "" && brp != "":
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "filter by either aggregator or brp, not both"))
		return
	case aggregator != "":
		conns, err = h.queries.ConnectionsByAggregator(r.Context(), aggregator)
	case brp != "":
		conns, err = h.queries.ConnectionsByBRP(r.Context(), brp)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "an aggregator or brp filter is required"))
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if conns == nil {
		conns = []*domain.Connection{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"connections": conns})
}
