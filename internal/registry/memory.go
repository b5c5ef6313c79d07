package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

// InMemoryStore keeps one role's participants in a map. It favors clarity
// over performance and backs the unit test suites.
type InMemoryStore struct {
	role domain.Role

	mu sync.RWMutex
	// keyed by lower-cased domain; values preserve the stored spelling.
	participants map[string]*domain.Participant
}

// NewInMemory builds an empty registry for one role.
func NewInMemory(role domain.Role) *InMemoryStore {
	return &InMemoryStore{
		role:         role,
		participants: make(map[string]*domain.Participant),
	}
}

// NewInMemoryRegistries builds a full role table backed by in-memory stores.
func NewInMemoryRegistries() Registries {
	regs := make(Registries, len(domain.Roles()))
	for _, role := range domain.Roles() {
		regs[role] = NewInMemory(role)
	}
	return regs
}

func (s *InMemoryStore) FindByDomain(_ context.Context, partyDomain string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.participants[strings.ToLower(partyDomain)]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "%s participant %q not found", s.role, partyDomain)
}

func (s *InMemoryStore) FindOrCreate(_ context.Context, partyDomain string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(partyDomain)
	if p, ok := s.participants[key]; ok {
		copied := *p
		return &copied, nil
	}
	p := &domain.Participant{Role: s.role, Domain: partyDomain}
	s.participants[key] = p
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Create(_ context.Context, partyDomain string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(partyDomain)
	if _, ok := s.participants[key]; ok {
		return nil, dErrors.Newf(dErrors.CodeConflict, "%s participant %q already registered", s.role, partyDomain)
	}
	p := &domain.Participant{Role: s.role, Domain: partyDomain}
	s.participants[key] = p
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, partyDomain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(partyDomain)
	if _, ok := s.participants[key]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "%s participant %q not found", s.role, partyDomain)
	}
	delete(s.participants, key)
	return nil
}

func (s *InMemoryStore) FindAll(_ context.Context) ([]*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		copied := *p
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Domain < all[j].Domain })
	return all, nil
}
