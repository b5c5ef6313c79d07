package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"coref/internal/batch"
	"coref/internal/domain"
	"coref/internal/registry"
	dErrors "coref/pkg/domain-errors"
	"coref/pkg/platform/httputil"
)

// storeFor resolves the registry addressed by the {role} path segment.
func (h *Handler) storeFor(r *http.Request) (registry.Store, domain.Role, error) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, "", err
	}
	store := h.registries.For(role)
	if store == nil {
		return nil, "", dErrors.New(dErrors.CodeBadRequest, "no registry for role "+string(role))
	}
	return store, role, nil
}

func (h *Handler) handleParticipantList(w http.ResponseWriter, r *http.Request) {
	store, _, err := h.storeFor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	participants, err := store.FindAll(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"participants": participants})
}

func (h *Handler) handleParticipantFind(w http.ResponseWriter, r *http.Request) {
	store, _, err := h.storeFor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	participant, err := store.FindByDomain(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, participant)
}

type createParticipantRequest struct {
	Domain string `json:"domain"`
}

func (h *Handler) handleParticipantCreate(w http.ResponseWriter, r *http.Request) {
	store, role, err := h.storeFor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req createParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed participant"))
		return
	}
	if req.Domain == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "domain is required"))
		return
	}
	participant, err := store.Create(r.Context(), req.Domain)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.metrics.ParticipantsCreated.WithLabelValues(string(role)).Inc()
	httputil.WriteJSON(w, http.StatusCreated, participant)
}

func (h *Handler) handleParticipantDelete(w http.ResponseWriter, r *http.Request) {
	store, role, err := h.storeFor(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := store.Delete(r.Context(), chi.URLParam(r, "domain")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.metrics.ParticipantsDeleted.WithLabelValues(string(role)).Inc()
	w.WriteHeader(http.StatusNoContent)
}

type batchRequest struct {
	Actions []batch.Action `json:"actions"`
}

func (h *Handler) handleParticipantBatch(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed batch"))
		return
	}
	results := h.processor.Process(r.Context(), role, req.Actions)
	h.metrics.BatchActions.Add(float64(len(req.Actions)))
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}
