// Package reconcile implements the common reference topology reconciliation
// engine. Each entry point takes one already-parsed update from a market
// party, validates it against the operating mode and the ownership rules, and
// converges the registries to the asserted facts in a single transactional
// pass. A non-empty rejection list means the update had no persistent effect.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"coref/internal/domain"
	"coref/internal/events"
	"coref/internal/registry"
	"coref/internal/topology"
	dErrors "coref/pkg/domain-errors"
)

// Service is the reconciliation engine. The operating mode is passed into
// every call rather than held as state, keeping the engine pure with respect
// to configuration.
type Service struct {
	registries registry.Registries
	topo       topology.Store
	logger     *slog.Logger
	publisher  events.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher sets the topology change event publisher.
func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// New builds a reconciliation engine over the given registries.
func New(registries registry.Registries, topo topology.Store, opts ...Option) (*Service, error) {
	if registries == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "participant registries are required")
	}
	if topo == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "topology store is required")
	}
	s := &Service{
		registries: registries,
		topo:       topo,
		logger:     slog.Default(),
		publisher:  events.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UpdateCongestionPoints reconciles a DSO's assertion of one congestion point
// and its attached connections. An empty connection list deletes the
// congestion point; this is the only deletion path a congestion point has.
func (s *Service) UpdateCongestionPoints(ctx context.Context, mode domain.Mode, upd domain.TopologyUpdate) ([]domain.Rejection, error) {
	rejections, err := s.resolveSenderRejections(ctx, mode, domain.RoleDistributionSystemOp, upd.SenderDomain)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	rejections, err = s.checkCongestionPointOwnership(ctx, upd)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	rejections, err = s.checkCrossDSOConnections(ctx, upd)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	eventType := events.TypeCongestionPointUpdated
	if len(upd.Connections) == 0 {
		eventType = events.TypeCongestionPointDeleted
		if err := s.topo.WithTx(ctx, func(tx topology.Store) error {
			return s.deleteCongestionPoint(ctx, tx, upd.EntityAddress)
		}); err != nil {
			return nil, err
		}
		s.accepted(ctx, eventType, upd)
		return nil, nil
	}

	// Ownership was validated above, so a mismatching auto-create cannot
	// happen here: either the congestion point is new, or the sender owns it.
	if _, err := s.registries.For(domain.RoleDistributionSystemOp).FindOrCreate(ctx, upd.SenderDomain); err != nil {
		return nil, err
	}

	if err := s.topo.WithTx(ctx, func(tx topology.Store) error {
		return s.applyCongestionPointDiff(ctx, tx, upd)
	}); err != nil {
		return nil, err
	}
	s.accepted(ctx, eventType, upd)
	return nil, nil
}

// UpdateAggregatorConnections reconciles an aggregator's customer claims.
// Unlike the DSO path this is purely assertive per listed connection: a
// connection the update does not mention is left alone.
func (s *Service) UpdateAggregatorConnections(ctx context.Context, mode domain.Mode, upd domain.TopologyUpdate) ([]domain.Rejection, error) {
	rejections, err := s.resolveSenderRejections(ctx, mode, domain.RoleAggregator, upd.SenderDomain)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	rejections, err = s.checkCongestionPointOwnership(ctx, upd)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	if mode == domain.ModeOpen {
		if _, err := s.registries.For(domain.RoleAggregator).FindOrCreate(ctx, upd.SenderDomain); err != nil {
			return nil, err
		}
	}

	if err := s.topo.WithTx(ctx, func(tx topology.Store) error {
		for _, assertion := range upd.Connections {
			if err := s.applyAggregatorAssertion(ctx, tx, upd.SenderDomain, assertion); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	s.accepted(ctx, events.TypeAggregatorUpdated, upd)
	return nil, nil
}

// UpdateBalanceResponsiblePartyConnections reconciles a BRP's claims. The BRP
// path only ever creates or overwrites the BRP slot; it never clears it and
// never gates creation on the customer flag. The asymmetry with the
// aggregator path is part of the protocol contract.
func (s *Service) UpdateBalanceResponsiblePartyConnections(ctx context.Context, mode domain.Mode, upd domain.TopologyUpdate) ([]domain.Rejection, error) {
	rejections, err := s.resolveSenderRejections(ctx, mode, domain.RoleBalanceResponsibleParty, upd.SenderDomain)
	if err != nil || len(rejections) > 0 {
		return rejections, err
	}

	if mode == domain.ModeOpen {
		if _, err := s.registries.For(domain.RoleBalanceResponsibleParty).FindOrCreate(ctx, upd.SenderDomain); err != nil {
			return nil, err
		}
	}

	if err := s.topo.WithTx(ctx, func(tx topology.Store) error {
		for _, assertion := range upd.Connections {
			if err := s.applyBRPAssertion(ctx, tx, upd.SenderDomain, assertion); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	s.accepted(ctx, events.TypeBRPUpdated, upd)
	return nil, nil
}

// resolveSenderRejections applies the operating mode gate. In CLOSED mode the
// sender must already be registered under the asserting role; in OPEN mode
// unknown senders are admitted (and registered later, once validation passed).
func (s *Service) resolveSenderRejections(ctx context.Context, mode domain.Mode, role domain.Role, senderDomain string) ([]domain.Rejection, error) {
	if mode == domain.ModeOpen {
		return nil, nil
	}
	_, err := s.registries.For(role).FindByDomain(ctx, senderDomain)
	if err == nil {
		return nil, nil
	}
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return []domain.Rejection{{
			Message: "not allowed to register " + string(role) + " " + senderDomain + " in closed mode",
		}}, nil
	}
	return nil, err
}

// checkCongestionPointOwnership rejects an update whose target entity address
// names an existing congestion point owned by a different DSO. The owning DSO
// is fixed at creation and never reassigned.
func (s *Service) checkCongestionPointOwnership(ctx context.Context, upd domain.TopologyUpdate) ([]domain.Rejection, error) {
	cp, err := s.topo.FindCongestionPoint(ctx, upd.EntityAddress)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !domain.SameDomain(cp.DSODomain, upd.SenderDomain) {
		return []domain.Rejection{{
			Message: "congestion point " + upd.EntityAddress + " is registered to another DSO",
		}}, nil
	}
	return nil, nil
}

// checkCrossDSOConnections rejects, per connection, any assertion that would
// silently pull a connection out of a congestion point owned by a different
// DSO. One rejection is produced for each conflicting connection.
func (s *Service) checkCrossDSOConnections(ctx context.Context, upd domain.TopologyUpdate) ([]domain.Rejection, error) {
	var rejections []domain.Rejection
	for _, assertion := range upd.Connections {
		conn, err := s.topo.FindConnection(ctx, assertion.EntityAddress)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		if conn.CongestionPoint == "" || conn.CongestionPoint == upd.EntityAddress {
			continue
		}
		owner, err := s.topo.FindCongestionPoint(ctx, conn.CongestionPoint)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		if !domain.SameDomain(owner.DSODomain, upd.SenderDomain) {
			rejections = append(rejections, domain.Rejection{
				Message: "connection " + assertion.EntityAddress + " belongs to congestion point " +
					conn.CongestionPoint + " of another DSO",
			})
		}
	}
	return rejections, nil
}

// deleteCongestionPoint cascades: attached connections keep living when an
// aggregator still claims them (only the congestion point link is cleared),
// otherwise they are removed with the congestion point.
func (s *Service) deleteCongestionPoint(ctx context.Context, tx topology.Store, entityAddress string) error {
	if _, err := tx.FindCongestionPoint(ctx, entityAddress); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			// Deleting an unknown congestion point is a no-op; the asserted
			// end state (absence) already holds.
			return nil
		}
		return err
	}
	attached, err := tx.ConnectionsByCongestionPoint(ctx, entityAddress)
	if err != nil {
		return err
	}
	for _, conn := range attached {
		if conn.AggregatorDomain != "" {
			conn.CongestionPoint = ""
			if err := tx.SaveConnection(ctx, *conn); err != nil {
				return err
			}
			continue
		}
		if err := tx.DeleteConnection(ctx, conn.EntityAddress); err != nil {
			return err
		}
	}
	return tx.DeleteCongestionPoint(ctx, entityAddress)
}

// applyCongestionPointDiff converges the set of connections attached to the
// target congestion point to exactly the asserted set: missing connections
// are created, detached ones are reattached, and currently attached
// connections the update no longer lists are disassociated or deleted.
func (s *Service) applyCongestionPointDiff(ctx context.Context, tx topology.Store, upd domain.TopologyUpdate) error {
	cp, err := tx.FindCongestionPoint(ctx, upd.EntityAddress)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		cp = &domain.CongestionPoint{EntityAddress: upd.EntityAddress, DSODomain: upd.SenderDomain}
		if err := tx.SaveCongestionPoint(ctx, *cp); err != nil {
			return err
		}
	}

	attached, err := tx.ConnectionsByCongestionPoint(ctx, upd.EntityAddress)
	if err != nil {
		return err
	}
	toDelete := make(map[string]*domain.Connection, len(attached))
	for _, conn := range attached {
		toDelete[conn.EntityAddress] = conn
	}

	for _, assertion := range upd.Connections {
		if _, ok := toDelete[assertion.EntityAddress]; ok {
			// Already attached here; keep it.
			delete(toDelete, assertion.EntityAddress)
			continue
		}
		conn, err := tx.FindConnection(ctx, assertion.EntityAddress)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeNotFound) {
				return err
			}
			conn = &domain.Connection{EntityAddress: assertion.EntityAddress}
		}
		conn.CongestionPoint = upd.EntityAddress
		if err := tx.SaveConnection(ctx, *conn); err != nil {
			return err
		}
	}

	for _, conn := range toDelete {
		if conn.AggregatorDomain != "" {
			conn.CongestionPoint = ""
			if err := tx.SaveConnection(ctx, *conn); err != nil {
				return err
			}
			continue
		}
		if err := tx.DeleteConnection(ctx, conn.EntityAddress); err != nil {
			return err
		}
	}
	return nil
}

// applyAggregatorAssertion applies one customer claim. A positive claim sets
// the aggregator slot, creating the connection when needed. A negative claim
// only has effect when the sender currently holds the slot; clearing the last
// slot deletes the orphaned connection.
func (s *Service) applyAggregatorAssertion(ctx context.Context, tx topology.Store, senderDomain string, assertion domain.ConnectionAssertion) error {
	conn, err := tx.FindConnection(ctx, assertion.EntityAddress)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if !assertion.IsCustomer {
			// Revoking a claim on an unknown connection states nothing.
			return nil
		}
		return tx.SaveConnection(ctx, domain.Connection{
			EntityAddress:    assertion.EntityAddress,
			AggregatorDomain: senderDomain,
		})
	}

	switch {
	case assertion.IsCustomer:
		conn.AggregatorDomain = senderDomain
		return tx.SaveConnection(ctx, *conn)
	case conn.AggregatorDomain != "" && domain.SameDomain(conn.AggregatorDomain, senderDomain):
		conn.AggregatorDomain = ""
		if conn.Orphaned() {
			return tx.DeleteConnection(ctx, conn.EntityAddress)
		}
		return tx.SaveConnection(ctx, *conn)
	default:
		// Negative claim against another party's slot, or no slot at all:
		// no statement is made.
		return nil
	}
}

// applyBRPAssertion applies one BRP claim: create when absent, otherwise
// overwrite the BRP slot. There is no revocation in this path.
func (s *Service) applyBRPAssertion(ctx context.Context, tx topology.Store, senderDomain string, assertion domain.ConnectionAssertion) error {
	conn, err := tx.FindConnection(ctx, assertion.EntityAddress)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		conn = &domain.Connection{EntityAddress: assertion.EntityAddress}
	}
	conn.BRPDomain = senderDomain
	return tx.SaveConnection(ctx, *conn)
}

func (s *Service) accepted(ctx context.Context, eventType string, upd domain.TopologyUpdate) {
	s.logger.InfoContext(ctx, "topology update accepted",
		"type", eventType,
		"sender_domain", upd.SenderDomain,
		"entity_address", upd.EntityAddress,
		"connections", len(upd.Connections),
	)
	if err := s.publisher.Publish(ctx, events.Event{
		Type:          eventType,
		EntityAddress: upd.EntityAddress,
		SenderDomain:  upd.SenderDomain,
		At:            time.Now().UTC(),
	}); err != nil {
		s.logger.WarnContext(ctx, "topology event publish failed", "error", err)
	}
}
