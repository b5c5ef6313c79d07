//go:build integration

package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"coref/internal/domain"
	"coref/internal/query"
	"coref/internal/topology"
	"coref/pkg/testutil/containers"
)

type QueryCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	topo    *topology.InMemoryStore
	service *query.Service
	ctx     context.Context
}

func TestQueryCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(QueryCacheSuite))
}

func (s *QueryCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *QueryCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.topo = topology.NewInMemory()
	s.service = query.New(s.topo, query.WithCache(s.redis.Client, time.Minute))
}

func (s *QueryCacheSuite) TestCachedReads() {
	s.Require().NoError(s.topo.SaveCongestionPoint(s.ctx,
		domain.CongestionPoint{EntityAddress: "ea.cp.1", DSODomain: "dso.example.com"}))
	s.Require().NoError(s.topo.SaveConnection(s.ctx,
		domain.Connection{EntityAddress: "ean.1", CongestionPoint: "ea.cp.1"}))

	s.Run("second read is served from the cache", func() {
		detail, err := s.service.CongestionPoint(s.ctx, "ea.cp.1")
		s.Require().NoError(err)
		s.Len(detail.Connections, 1)

		// Mutate the store behind the cache's back; the stale answer proves
		// the cache was hit.
		s.Require().NoError(s.topo.SaveConnection(s.ctx,
			domain.Connection{EntityAddress: "ean.2", CongestionPoint: "ea.cp.1"}))

		detail, err = s.service.CongestionPoint(s.ctx, "ea.cp.1")
		s.Require().NoError(err)
		s.Len(detail.Connections, 1)
	})

	s.Run("invalidation advances the generation and readers see fresh state", func() {
		s.service.Invalidate(s.ctx)

		detail, err := s.service.CongestionPoint(s.ctx, "ea.cp.1")
		s.Require().NoError(err)
		s.Len(detail.Connections, 2)
	})
}

func (s *QueryCacheSuite) TestConnectionListCaching() {
	s.Require().NoError(s.topo.SaveConnection(s.ctx,
		domain.Connection{EntityAddress: "ean.1", AggregatorDomain: "agr.example.com"}))

	conns, err := s.service.ConnectionsByAggregator(s.ctx, "agr.example.com")
	s.Require().NoError(err)
	s.Len(conns, 1)

	s.Require().NoError(s.topo.SaveConnection(s.ctx,
		domain.Connection{EntityAddress: "ean.2", AggregatorDomain: "agr.example.com"}))

	conns, err = s.service.ConnectionsByAggregator(s.ctx, "agr.example.com")
	s.Require().NoError(err)
	s.Len(conns, 1)

	s.service.Invalidate(s.ctx)
	conns, err = s.service.ConnectionsByAggregator(s.ctx, "agr.example.com")
	s.Require().NoError(err)
	s.Len(conns, 2)
}
