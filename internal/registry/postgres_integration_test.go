//go:build integration

package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	"coref/internal/registry"
	dErrors "coref/pkg/domain-errors"
	"coref/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	registries registry.Registries
	ctx        context.Context
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(registry.EnsureParticipantSchema(s.ctx, s.postgres.DB))
	s.registries = registry.NewPostgresRegistries(s.postgres.DB)
}

func (s *PostgresRegistrySuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(s.ctx, "TRUNCATE TABLE participants")
	s.Require().NoError(err)
}

func (s *PostgresRegistrySuite) TestLifecycle() {
	store := s.registries.For(domain.RoleAggregator)

	s.Run("create, find, list, delete", func() {
		_, err := store.Create(s.ctx, "Agr.Example.COM")
		s.Require().NoError(err)

		found, err := store.FindByDomain(s.ctx, "agr.example.com")
		s.Require().NoError(err)
		s.Equal("Agr.Example.COM", found.Domain)

		all, err := store.FindAll(s.ctx)
		s.Require().NoError(err)
		s.Len(all, 1)

		s.Require().NoError(store.Delete(s.ctx, "AGR.EXAMPLE.COM"))
		_, err = store.FindByDomain(s.ctx, "agr.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("duplicate registration conflicts case-insensitively", func() {
		_, err := store.Create(s.ctx, "dup.example.com")
		s.Require().NoError(err)
		_, err = store.Create(s.ctx, "DUP.example.com")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("roles are independent registries", func() {
		_, err := store.Create(s.ctx, "shared.example.com")
		s.Require().NoError(err)
		_, err = s.registries.For(domain.RoleBalanceResponsibleParty).Create(s.ctx, "shared.example.com")
		s.NoError(err)
	})
}

// TestConcurrentFindOrCreate verifies that racing registrations of the same
// domain converge on one row without surfacing conflicts to callers.
func (s *PostgresRegistrySuite) TestConcurrentFindOrCreate() {
	store := s.registries.For(domain.RoleDistributionSystemOp)
	const goroutines = 20

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.FindOrCreate(s.ctx, "dso.example.com"); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Zero(failures.Load())
	all, err := store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}
