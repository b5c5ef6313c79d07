package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
	"coref/pkg/platform/httputil"
	"coref/pkg/requestcontext"
)

// updateResponse is the envelope for all three topology update endpoints. An
// update is accepted exactly when the rejection list is empty.
type updateResponse struct {
	Accepted   bool               `json:"accepted"`
	Rejections []domain.Rejection `json:"rejections"`
}

type updateFunc func(ctx context.Context, mode domain.Mode, upd domain.TopologyUpdate) ([]domain.Rejection, error)

func (h *Handler) handleCongestionPointUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, domain.RoleDistributionSystemOp, domain.EntityCongestionPoint, h.reconciler.UpdateCongestionPoints)
}

func (h *Handler) handleAggregatorUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, domain.RoleAggregator, domain.EntityAggregator, h.reconciler.UpdateAggregatorConnections)
}

func (h *Handler) handleBRPUpdate(w http.ResponseWriter, r *http.Request) {
	h.handleUpdate(w, r, domain.RoleBalanceResponsibleParty, domain.EntityBRP, h.reconciler.UpdateBalanceResponsiblePartyConnections)
}

// handleUpdate is the shared skeleton of the three update endpoints. The
// authenticated party must match the update's sender domain and hold the role
// the endpoint reconciles for; impersonation attempts are refused before any
// business validation runs.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, role domain.Role, entity domain.UpdateEntity, apply updateFunc) {
	ctx := r.Context()

	var upd domain.TopologyUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed topology update"))
		return
	}
	upd.Entity = entity
	if err := validateUpdate(upd); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !domain.SameDomain(requestcontext.PartyDomain(ctx), upd.SenderDomain) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "sender domain does not match the authenticated party"))
		return
	}
	if requestcontext.PartyRole(ctx) != string(role) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "authenticated party does not hold the "+string(role)+" role"))
		return
	}

	rejections, err := apply(ctx, h.mode, upd)
	if err != nil {
		h.logger.ErrorContext(ctx, "topology update failed",
			"role", string(role),
			"sender_domain", upd.SenderDomain,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	h.metrics.ObserveUpdate(string(role), len(rejections))
	if len(rejections) == 0 {
		h.queries.Invalidate(ctx)
	} else {
		h.logger.InfoContext(ctx, "topology update rejected",
			"role", string(role),
			"sender_domain", upd.SenderDomain,
			"rejections", domain.RejectionMessages(rejections),
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	httputil.WriteJSON(w, http.StatusOK, updateResponse{
		Accepted:   len(rejections) == 0,
		Rejections: append([]domain.Rejection{}, rejections...),
	})
}

func validateUpdate(upd domain.TopologyUpdate) error {
	if upd.SenderDomain == "" {
		return dErrors.New(dErrors.CodeValidation, "sender_domain is required")
	}
	if upd.Entity == domain.EntityCongestionPoint && upd.EntityAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "entity_address is required for congestion point updates")
	}
	for _, assertion := range upd.Connections {
		if assertion.EntityAddress == "" {
			return dErrors.New(dErrors.CodeValidation, "every connection needs an entity_address")
		}
	}
	return nil
}
