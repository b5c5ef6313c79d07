// Package events broadcasts accepted topology changes so market parties can
// re-query the common reference instead of polling it.
package events

import (
	"context"
	"time"
)

// Topology change event types.
const (
	TypeCongestionPointUpdated = "congestion_point.updated"
	TypeCongestionPointDeleted = "congestion_point.deleted"
	TypeAggregatorUpdated      = "aggregator_connections.updated"
	TypeBRPUpdated             = "brp_connections.updated"
	TypeParticipantCreated     = "participant.created"
	TypeParticipantDeleted     = "participant.deleted"
)

// Event is one accepted change to the common reference.
type Event struct {
	Type          string    `json:"type"`
	EntityAddress string    `json:"entity_address,omitempty"`
	SenderDomain  string    `json:"sender_domain,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher emits topology change events. Publishing is best-effort from the
// caller's point of view: a failed publish never rolls back an accepted
// update.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop discards all events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() {}
