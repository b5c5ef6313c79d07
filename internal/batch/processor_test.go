package batch

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	"coref/internal/registry"
)

type ProcessorSuite struct {
	suite.Suite
	registries registry.Registries
	processor  *Processor
	ctx        context.Context
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	s.registries = registry.NewInMemoryRegistries()
	s.processor = New(s.registries, nil)
	s.ctx = context.Background()
}

func (s *ProcessorSuite) TestDispatch() {
	s.Run("create then find then delete", func() {
		results := s.processor.Process(s.ctx, domain.RoleAggregator, []Action{
			{Method: http.MethodPost, Domain: "agr.example.com"},
			{Method: http.MethodGet, Domain: "agr.example.com"},
			{Method: http.MethodDelete, Domain: "agr.example.com"},
		})
		s.Require().Len(results, 3)
		s.Equal(http.StatusCreated, results[0].Code)
		s.Equal(http.StatusOK, results[1].Code)
		s.Equal(http.StatusOK, results[2].Code)

		var p domain.Participant
		s.Require().NoError(json.Unmarshal([]byte(results[1].Body), &p))
		s.Equal(domain.RoleAggregator, p.Role)
		s.Equal("agr.example.com", p.Domain)
	})

	s.Run("find of unknown participant yields 404", func() {
		results := s.processor.Process(s.ctx, domain.RoleBalanceResponsibleParty, []Action{
			{Method: http.MethodGet, Domain: "ghost.example.com"},
		})
		s.Require().Len(results, 1)
		s.Equal(http.StatusNotFound, results[0].Code)
		s.NotEmpty(results[0].Error)
	})

	s.Run("duplicate create yields 409", func() {
		results := s.processor.Process(s.ctx, domain.RoleDistributionSystemOp, []Action{
			{Method: http.MethodPost, Domain: "dso.example.com"},
			{Method: http.MethodPost, Domain: "dso.example.com"},
		})
		s.Equal(http.StatusCreated, results[0].Code)
		s.Equal(http.StatusConflict, results[1].Code)
	})

	s.Run("unsupported method yields 400", func() {
		results := s.processor.Process(s.ctx, domain.RoleAggregator, []Action{
			{Method: http.MethodPut, Domain: "agr.example.com"},
		})
		s.Equal(http.StatusBadRequest, results[0].Code)
		s.Contains(results[0].Error, "not supported")
	})
}

func (s *ProcessorSuite) TestIsolationAndOrder() {
	s.Run("one failing action never blocks its siblings", func() {
		results := s.processor.Process(s.ctx, domain.RoleAggregator, []Action{
			{Method: http.MethodDelete, Domain: "missing.example.com"},
			{Method: http.MethodPost, Domain: "survivor.example.com"},
		})
		s.Require().Len(results, 2)
		s.Equal(http.StatusNotFound, results[0].Code)
		s.Equal(http.StatusCreated, results[1].Code)

		_, err := s.registries.For(domain.RoleAggregator).FindByDomain(s.ctx, "survivor.example.com")
		s.NoError(err)
	})

	s.Run("results come back in input order, one per action", func() {
		actions := []Action{
			{Method: http.MethodPost, Domain: "a.example.com"},
			{Method: http.MethodGet, Domain: "nope.example.com"},
			{Method: http.MethodPost, Domain: "b.example.com"},
		}
		results := s.processor.Process(s.ctx, domain.RoleMeterDataCompany, actions)
		s.Require().Len(results, len(actions))
		s.Equal(http.StatusCreated, results[0].Code)
		s.Equal(http.StatusNotFound, results[1].Code)
		s.Equal(http.StatusCreated, results[2].Code)
	})
}

func (s *ProcessorSuite) TestPrevalidatedFailures() {
	s.Run("upstream validation error passes through untouched", func() {
		results := s.processor.Process(s.ctx, domain.RoleAggregator, []Action{
			{Method: http.MethodPost, Domain: "agr.example.com", ValidationError: "domain attribute is malformed"},
		})
		s.Require().Len(results, 1)
		s.Equal(http.StatusBadRequest, results[0].Code)
		s.Equal("domain attribute is malformed", results[0].Error)

		// The action was never dispatched.
		_, err := s.registries.For(domain.RoleAggregator).FindByDomain(s.ctx, "agr.example.com")
		s.Error(err)
	})

	s.Run("unknown role fails every action", func() {
		results := s.processor.Process(s.ctx, domain.Role("XXX"), []Action{
			{Method: http.MethodPost, Domain: "a.example.com"},
			{Method: http.MethodGet, Domain: "b.example.com"},
		})
		s.Require().Len(results, 2)
		for _, result := range results {
			s.Equal(http.StatusBadRequest, result.Code)
			s.Contains(result.Error, "unknown market role")
		}
	})
}
