// Package registry holds the participant registries: one store per market
// role, all sharing the same contract. Stores are interface-driven so the
// reconciliation engine and the batch processor can run against in-memory
// backends in tests and PostgreSQL in production without rewiring.
package registry

import (
	"context"

	"coref/internal/domain"
)

// Store is the registry contract for a single participant role.
type Store interface {
	// FindByDomain returns the participant or a CodeNotFound error.
	FindByDomain(ctx context.Context, partyDomain string) (*domain.Participant, error)
	// FindOrCreate returns the existing participant or registers a new one.
	// It is idempotent.
	FindOrCreate(ctx context.Context, partyDomain string) (*domain.Participant, error)
	// Create registers a new participant, failing with CodeConflict when the
	// domain is already registered for this role.
	Create(ctx context.Context, partyDomain string) (*domain.Participant, error)
	// Delete removes a participant, failing with CodeNotFound when absent.
	Delete(ctx context.Context, partyDomain string) error
	// FindAll lists every participant of this role.
	FindAll(ctx context.Context) ([]*domain.Participant, error)
}

// Registries maps each market role to its registry. Batch actions and
// reconciliation resolve the store through this table instead of switching on
// the role in every caller.
type Registries map[domain.Role]Store

// For returns the store for a role, or nil when the role is unknown.
func (r Registries) For(role domain.Role) Store {
	return r[role]
}
