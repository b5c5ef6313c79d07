// Package batch processes heterogeneous participant registry actions. Each
// action is dispatched independently against the registry selected by the
// batch's role discriminator; one action failing never blocks its siblings,
// and the result list preserves input order.
package batch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"coref/internal/domain"
	"coref/internal/registry"
	dErrors "coref/pkg/domain-errors"
)

// Action is one registry operation inside a batch. ValidationError carries a
// schema-validation failure detected upstream; the processor passes it
// through untouched instead of dispatching.
type Action struct {
	Method          string `json:"method"`
	Domain          string `json:"domain"`
	ValidationError string `json:"validation_error,omitempty"`
}

// Result is the outcome of one action, holding an HTTP-style status code and
// either a serialized body (finds) or an error message. Errors stay inside
// the result; the processor never propagates a per-action failure.
type Result struct {
	Code  int    `json:"code"`
	Body  string `json:"body,omitempty"`
	Error string `json:"error,omitempty"`
}

// Processor dispatches batch actions through the role registry table.
type Processor struct {
	registries registry.Registries
	logger     *slog.Logger
}

// New builds a batch processor over the given registries.
func New(registries registry.Registries, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{registries: registries, logger: logger}
}

// Process runs every action in input order and returns exactly one result per
// action, in the same order.
func (p *Processor) Process(ctx context.Context, role domain.Role, actions []Action) []Result {
	results := make([]Result, len(actions))
	store := p.registries.For(role)
	for i, action := range actions {
		if store == nil {
			results[i] = Result{Code: http.StatusBadRequest, Error: "unknown market role " + string(role)}
			continue
		}
		results[i] = p.dispatch(ctx, store, action)
	}
	return results
}

func (p *Processor) dispatch(ctx context.Context, store registry.Store, action Action) Result {
	if action.ValidationError != "" {
		// Populated upstream by schema validation; never overwrite it.
		return Result{Code: http.StatusBadRequest, Error: action.ValidationError}
	}
	switch action.Method {
	case http.MethodGet:
		return p.find(ctx, store, action.Domain)
	case http.MethodPost:
		return p.create(ctx, store, action.Domain)
	case http.MethodDelete:
		return p.delete(ctx, store, action.Domain)
	default:
		return Result{Code: http.StatusBadRequest, Error: "method " + action.Method + " not supported"}
	}
}

func (p *Processor) find(ctx context.Context, store registry.Store, partyDomain string) Result {
	participant, err := store.FindByDomain(ctx, partyDomain)
	if err != nil {
		return p.errResult(ctx, err)
	}
	body, err := json.Marshal(participant)
	if err != nil {
		return Result{Code: http.StatusInternalServerError, Error: err.Error()}
	}
	return Result{Code: http.StatusOK, Body: string(body)}
}

func (p *Processor) create(ctx context.Context, store registry.Store, partyDomain string) Result {
	if _, err := store.Create(ctx, partyDomain); err != nil {
		return p.errResult(ctx, err)
	}
	return Result{Code: http.StatusCreated}
}

func (p *Processor) delete(ctx context.Context, store registry.Store, partyDomain string) Result {
	if err := store.Delete(ctx, partyDomain); err != nil {
		return p.errResult(ctx, err)
	}
	return Result{Code: http.StatusOK}
}

func (p *Processor) errResult(ctx context.Context, err error) Result {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		p.logger.ErrorContext(ctx, "batch action failed", "error", err)
	}
	return Result{Code: status, Error: err.Error()}
}
