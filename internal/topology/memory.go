package topology

import (
	"context"
	"sort"
	"sync"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

// InMemoryStore keeps the topology in maps keyed by entity address. It backs
// the unit test suites and small single-node deployments.
type InMemoryStore struct {
	mu               sync.RWMutex
	txMu             sync.Mutex
	congestionPoints map[string]*domain.CongestionPoint
	connections      map[string]*domain.Connection
}

// NewInMemory builds an empty topology store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		congestionPoints: make(map[string]*domain.CongestionPoint),
		connections:      make(map[string]*domain.Connection),
	}
}

func (s *InMemoryStore) FindCongestionPoint(_ context.Context, entityAddress string) (*domain.CongestionPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cp, ok := s.congestionPoints[entityAddress]; ok {
		copied := *cp
		return &copied, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "congestion point %q not found", entityAddress)
}

func (s *InMemoryStore) SaveCongestionPoint(_ context.Context, cp domain.CongestionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := cp
	s.congestionPoints[cp.EntityAddress] = &copied
	return nil
}

func (s *InMemoryStore) DeleteCongestionPoint(_ context.Context, entityAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.congestionPoints[entityAddress]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "congestion point %q not found", entityAddress)
	}
	delete(s.congestionPoints, entityAddress)
	return nil
}

func (s *InMemoryStore) FindConnection(_ context.Context, entityAddress string) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if conn, ok := s.connections[entityAddress]; ok {
		copied := *conn
		return &copied, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "connection %q not found", entityAddress)
}

func (s *InMemoryStore) SaveConnection(_ context.Context, conn domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := conn
	s.connections[conn.EntityAddress] = &copied
	return nil
}

func (s *InMemoryStore) DeleteConnection(_ context.Context, entityAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[entityAddress]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "connection %q not found", entityAddress)
	}
	delete(s.connections, entityAddress)
	return nil
}

func (s *InMemoryStore) ConnectionsByCongestionPoint(_ context.Context, entityAddress string) ([]*domain.Connection, error) {
	return s.collect(func(c *domain.Connection) bool {
		return c.CongestionPoint == entityAddress
	}), nil
}

func (s *InMemoryStore) ConnectionsByAggregator(_ context.Context, aggregatorDomain string) ([]*domain.Connection, error) {
	return s.collect(func(c *domain.Connection) bool {
		return c.AggregatorDomain != "" && domain.SameDomain(c.AggregatorDomain, aggregatorDomain)
	}), nil
}

func (s *InMemoryStore) ConnectionsByBRP(_ context.Context, brpDomain string) ([]*domain.Connection, error) {
	return s.collect(func(c *domain.Connection) bool {
		return c.BRPDomain != "" && domain.SameDomain(c.BRPDomain, brpDomain)
	}), nil
}

func (s *InMemoryStore) collect(match func(*domain.Connection) bool) []*domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Connection
	for _, conn := range s.connections {
		if match(conn) {
			copied := *conn
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityAddress < out[j].EntityAddress })
	return out
}

// WithTx serializes transactional sections against each other. The in-memory
// backend applies mutations directly; the engine performs all validation
// before its first write, so rollback is only needed for storage failures,
// which the map backend cannot produce.
func (s *InMemoryStore) WithTx(_ context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}
