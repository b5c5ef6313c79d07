package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

type RegistryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestRegistryStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistryStoreSuite))
}

func (s *RegistryStoreSuite) SetupTest() {
	s.store = NewInMemory(domain.RoleAggregator)
	s.ctx = context.Background()
}

func (s *RegistryStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by domain", func() {
		created, err := s.store.Create(s.ctx, "agr.example.com")
		s.Require().NoError(err)
		s.Equal(domain.RoleAggregator, created.Role)

		found, err := s.store.FindByDomain(s.ctx, "agr.example.com")
		s.Require().NoError(err)
		s.Equal("agr.example.com", found.Domain)
	})

	s.Run("unknown domain returns not found", func() {
		_, err := s.store.FindByDomain(s.ctx, "ghost.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("duplicate registration conflicts", func() {
		_, err := s.store.Create(s.ctx, "dup.example.com")
		s.Require().NoError(err)
		_, err = s.store.Create(s.ctx, "dup.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("domains are unique case-insensitively but keep stored spelling", func() {
		_, err := s.store.Create(s.ctx, "Mixed.Example.COM")
		s.Require().NoError(err)

		_, err = s.store.Create(s.ctx, "mixed.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		found, err := s.store.FindByDomain(s.ctx, "MIXED.EXAMPLE.COM")
		s.Require().NoError(err)
		s.Equal("Mixed.Example.COM", found.Domain)
	})
}

func (s *RegistryStoreSuite) TestFindOrCreate() {
	s.Run("creates when absent", func() {
		p, err := s.store.FindOrCreate(s.ctx, "new.example.com")
		s.Require().NoError(err)
		s.Equal("new.example.com", p.Domain)
	})

	s.Run("returns the existing record without error", func() {
		_, err := s.store.Create(s.ctx, "Existing.example.com")
		s.Require().NoError(err)

		p, err := s.store.FindOrCreate(s.ctx, "existing.example.com")
		s.Require().NoError(err)
		s.Equal("Existing.example.com", p.Domain)
	})
}

func (s *RegistryStoreSuite) TestDeleteAndList() {
	s.Run("deletes registered participants", func() {
		_, err := s.store.Create(s.ctx, "gone.example.com")
		s.Require().NoError(err)

		s.Require().NoError(s.store.Delete(s.ctx, "GONE.example.com"))
		_, err = s.store.FindByDomain(s.ctx, "gone.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deleting an unknown participant returns not found", func() {
		err := s.store.Delete(s.ctx, "ghost.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("lists participants in stable order", func() {
		for _, d := range []string{"b.example.com", "a.example.com", "c.example.com"} {
			_, err := s.store.Create(s.ctx, d)
			s.Require().NoError(err)
		}
		all, err := s.store.FindAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 3)
		s.Equal("a.example.com", all[0].Domain)
		s.Equal("c.example.com", all[2].Domain)
	})
}

func (s *RegistryStoreSuite) TestRegistriesTable() {
	regs := NewInMemoryRegistries()
	for _, role := range domain.Roles() {
		s.NotNil(regs.For(role), "missing registry for %s", role)
	}
	s.Nil(regs.For(domain.Role("BOGUS")))
}
