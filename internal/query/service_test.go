package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	"coref/internal/topology"
	dErrors "coref/pkg/domain-errors"
)

// The redis-backed cache paths are covered by the integration suite; these
// tests pin the uncached read behavior every deployment shares.

type QueryServiceSuite struct {
	suite.Suite
	topo    *topology.InMemoryStore
	service *Service
	ctx     context.Context
}

func TestQueryServiceSuite(t *testing.T) {
	suite.Run(t, new(QueryServiceSuite))
}

func (s *QueryServiceSuite) SetupTest() {
	s.topo = topology.NewInMemory()
	s.service = New(s.topo)
	s.ctx = context.Background()
}

func (s *QueryServiceSuite) TestCongestionPoint() {
	s.Run("returns the point with attached connections", func() {
		s.Require().NoError(s.topo.SaveCongestionPoint(s.ctx,
			domain.CongestionPoint{EntityAddress: "ea.cp.1", DSODomain: "dso.example.com"}))
		s.Require().NoError(s.topo.SaveConnection(s.ctx,
			domain.Connection{EntityAddress: "ean.1", CongestionPoint: "ea.cp.1"}))
		s.Require().NoError(s.topo.SaveConnection(s.ctx,
			domain.Connection{EntityAddress: "ean.other", CongestionPoint: "ea.cp.2"}))

		detail, err := s.service.CongestionPoint(s.ctx, "ea.cp.1")
		s.Require().NoError(err)
		s.Equal("dso.example.com", detail.DSODomain)
		s.Require().Len(detail.Connections, 1)
		s.Equal("ean.1", detail.Connections[0].EntityAddress)
	})

	s.Run("unknown point returns not found", func() {
		_, err := s.service.CongestionPoint(s.ctx, "ea.cp.ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *QueryServiceSuite) TestConnectionLists() {
	s.Require().NoError(s.topo.SaveConnection(s.ctx,
		domain.Connection{EntityAddress: "ean.1", AggregatorDomain: "agr.example.com", BRPDomain: "brp.example.com"}))
	s.Require().NoError(s.topo.SaveConnection(s.ctx,
		domain.Connection{EntityAddress: "ean.2", AggregatorDomain: "agr.example.com"}))

	s.Run("by aggregator", func() {
		conns, err := s.service.ConnectionsByAggregator(s.ctx, "agr.example.com")
		s.Require().NoError(err)
		s.Len(conns, 2)
	})

	s.Run("by BRP", func() {
		conns, err := s.service.ConnectionsByBRP(s.ctx, "brp.example.com")
		s.Require().NoError(err)
		s.Len(conns, 1)
	})

	s.Run("no claims yields an empty list", func() {
		conns, err := s.service.ConnectionsByAggregator(s.ctx, "nobody.example.com")
		s.Require().NoError(err)
		s.Empty(conns)
	})
}

func (s *QueryServiceSuite) TestInvalidateWithoutCache() {
	// Must be a safe no-op when no cache is configured.
	s.service.Invalidate(s.ctx)
}
