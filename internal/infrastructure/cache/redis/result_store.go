package redis

import (
	"context"
	"time"

	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const (
	// LatestResultKey stores the most recent validation cycle result.
	LatestResultKey = "validation:latest"

	storeTimeout = 3 * time.Second
)

// ResultStore mirrors the latest validation result into the cache so that
// dashboard replicas can read it without hitting the engine directly.
// Implements validation.CycleListener.
type ResultStore struct {
	cache  port.Cache
	logger *logger.Logger
}

func NewResultStore(cache port.Cache, log *logger.Logger) *ResultStore {
	return &ResultStore{cache: cache, logger: log}
}

// OnCycleResult caches the cycle result, overwriting the previous one.
func (s *ResultStore) OnCycleResult(ctx context.Context, result validation.CycleResult) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, LatestResultKey, result); err != nil {
		s.logger.Warn("Failed to cache validation result",
			"cycle_id", result.ID,
			"error", err.Error(),
		)
		return
	}

	s.logger.Debug("Validation result cached", "cycle_id", result.ID)
}

// LatestResult reads the cached result back. Returns nil on cache miss.
func (s *ResultStore) LatestResult(ctx context.Context) (*validation.CycleResult, error) {
	var result validation.CycleResult
	if err := s.cache.Get(ctx, LatestResultKey, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
