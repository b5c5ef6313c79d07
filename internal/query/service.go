// Package query answers topology questions from market parties: congestion
// point detail for DSOs and MDCs, claimed connection lists for AGRs and BRPs.
// Reads go through an optional redis cache; accepted topology updates bump a
// generation counter so cached answers never outlive a change by more than
// the read that raced it.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"coref/internal/domain"
	"coref/internal/topology"
)

const generationKey = "coref:topology:generation"

// CongestionPointDetail is a congestion point with its attached connections.
type CongestionPointDetail struct {
	domain.CongestionPoint
	Connections []*domain.Connection `json:"connections"`
}

// Service serves the read side of the common reference.
type Service struct {
	topo   topology.Store
	cache  *redis.Client // nil disables caching
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the redis read cache with the given TTL.
func WithCache(cache *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.ttl = ttl
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New builds a query service over the topology store.
func New(topo topology.Store, opts ...Option) *Service {
	s := &Service{
		topo:   topo,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CongestionPoint returns a congestion point and its attached connections.
func (s *Service) CongestionPoint(ctx context.Context, entityAddress string) (*CongestionPointDetail, error) {
	key := "congestion-point:" + entityAddress
	var detail CongestionPointDetail
	if s.fromCache(ctx, key, &detail) {
		return &detail, nil
	}
	cp, err := s.topo.FindCongestionPoint(ctx, entityAddress)
	if err != nil {
		return nil, err
	}
	attached, err := s.topo.ConnectionsByCongestionPoint(ctx, entityAddress)
	if err != nil {
		return nil, err
	}
	detail = CongestionPointDetail{CongestionPoint: *cp, Connections: attached}
	s.toCache(ctx, key, detail)
	return &detail, nil
}

// ConnectionsByAggregator returns the connections an aggregator has claimed.
func (s *Service) ConnectionsByAggregator(ctx context.Context, aggregatorDomain string) ([]*domain.Connection, error) {
	return s.connections(ctx, "aggregator:"+aggregatorDomain, func() ([]*domain.Connection, error) {
		return s.topo.ConnectionsByAggregator(ctx, aggregatorDomain)
	})
}

// ConnectionsByBRP returns the connections a balance responsible party has
// claimed.
func (s *Service) ConnectionsByBRP(ctx context.Context, brpDomain string) ([]*domain.Connection, error) {
	return s.connections(ctx, "brp:"+brpDomain, func() ([]*domain.Connection, error) {
		return s.topo.ConnectionsByBRP(ctx, brpDomain)
	})
}

// Invalidate advances the cache generation after an accepted topology update.
// Stale entries of prior generations are never read again and fall out of
// redis when their TTL expires.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, generationKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "query cache invalidation failed", "error", err)
	}
}

func (s *Service) connections(ctx context.Context, key string, load func() ([]*domain.Connection, error)) ([]*domain.Connection, error) {
	var cached []*domain.Connection
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	conns, err := load()
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, conns)
	return conns, nil
}

func (s *Service) cacheKey(ctx context.Context, key string) (string, error) {
	gen, err := s.cache.Get(ctx, generationKey).Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		return "", err
	} else if _, convErr := strconv.ParseInt(gen, 10, 64); convErr != nil {
		gen = "0"
	}
	return fmt.Sprintf("coref:query:%s:%s", gen, key), nil
}

func (s *Service) fromCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	fullKey, err := s.cacheKey(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "query cache read failed", "key", key, "error", err)
		return false
	}
	raw, err := s.cache.Get(ctx, fullKey).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "query cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.WarnContext(ctx, "query cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	fullKey, err := s.cacheKey(ctx, key)
	if err != nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.WarnContext(ctx, "query cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, fullKey, raw, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "query cache write failed", "key", key, "error", err)
	}
}
