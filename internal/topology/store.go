// Package topology holds the connection and congestion point registries.
// Entity addresses (EANs) are exact-match identifiers; participant domains
// stored on topology records are matched case-insensitively, mirroring the
// participant registries.
package topology

import (
	"context"

	"coref/internal/domain"
)

// Store is the topology registry contract. Reads return CodeNotFound errors
// for absent records; saves are upserts keyed by entity address.
//
// WithTx runs fn against a transactional view of the store. Every mutation of
// a single reconciliation pass goes through one WithTx call so a rejected or
// failed update leaves no partial state behind.
type Store interface {
	FindCongestionPoint(ctx context.Context, entityAddress string) (*domain.CongestionPoint, error)
	SaveCongestionPoint(ctx context.Context, cp domain.CongestionPoint) error
	DeleteCongestionPoint(ctx context.Context, entityAddress string) error

	FindConnection(ctx context.Context, entityAddress string) (*domain.Connection, error)
	SaveConnection(ctx context.Context, conn domain.Connection) error
	DeleteConnection(ctx context.Context, entityAddress string) error

	ConnectionsByCongestionPoint(ctx context.Context, entityAddress string) ([]*domain.Connection, error)
	ConnectionsByAggregator(ctx context.Context, aggregatorDomain string) ([]*domain.Connection, error)
	ConnectionsByBRP(ctx context.Context, brpDomain string) ([]*domain.Connection, error)

	WithTx(ctx context.Context, fn func(Store) error) error
}
