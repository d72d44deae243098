// Package resultcache caches filter results in a key-value store.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/domain/filter"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// executor runs a filter definition.
type executor interface {
	Execute(ctx context.Context, def filter.Definition) (filter.Result, error)
}

// CachedExecutor caches results per definition. Entries are keyed under a
// generation counter; Invalidate bumps the generation so every older entry
// becomes unreachable and expires on its TTL.
type CachedExecutor struct {
	inner      executor
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner executor,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedExecutor {
	return &CachedExecutor{
		inner:      inner,
		store:      s,
		prefix:     prefix + "result:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Execute returns a cached result or runs the inner executor.
// Errors are never cached.
func (c *CachedExecutor) Execute(ctx context.Context, def filter.Definition) (filter.Result, error) {
	gen, ok := c.generation(ctx)
	if !ok {
		return c.run(ctx, def)
	}
	key, err := c.cacheKey(gen, def)
	if err != nil {
		c.logger.Warn("Failed to build result cache key", zap.Error(err))
		return c.run(ctx, def)
	}

	if res, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return res, nil
	}
	c.incCache("miss")

	res, err := c.run(ctx, def)
	if err != nil {
		return filter.Result{}, err
	}
	c.putToCache(ctx, key, res)
	return res, nil
}

// Invalidate makes every cached result stale.
func (c *CachedExecutor) Invalidate(ctx context.Context) error {
	if _, err := c.store.Incr(ctx, c.generationKey()); err != nil {
		return fmt.Errorf("bump result cache generation: %w", err)
	}
	return nil
}

func (c *CachedExecutor) run(ctx context.Context, def filter.Definition) (filter.Result, error) {
	res, err := c.inner.Execute(ctx, def)
	if err != nil {
		return filter.Result{}, fmt.Errorf("execute filter: %w", err)
	}
	return res, nil
}

func (c *CachedExecutor) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedExecutor) generationKey() string {
	return c.prefix + "gen"
}

// generation reads the current generation. A missing counter is generation 0.
// ok is false when the store is unreachable and the cache must be bypassed.
func (c *CachedExecutor) generation(ctx context.Context) (string, bool) {
	data, err := c.store.Get(ctx, c.generationKey())
	if errors.Is(err, db.ErrKeyNotFound) {
		return "0", true
	}
	if err != nil {
		c.logger.Warn("Result cache unavailable", zap.Error(err))
		return "", false
	}
	if _, err := strconv.ParseInt(string(data), 10, 64); err != nil {
		c.logger.Warn("Invalid result cache generation", zap.ByteString("value", data))
		return "", false
	}
	return string(data), true
}

func (c *CachedExecutor) cacheKey(gen string, def filter.Definition) (string, error) {
	canonical, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("encode definition: %w", err)
	}
	h := sha256.Sum256(canonical)
	return c.prefix + gen + ":" + hex.EncodeToString(h[:]), nil
}

func (c *CachedExecutor) getFromCache(ctx context.Context, key string) (filter.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached result", zap.String("key", key), zap.Error(err))
		}
		return filter.Result{}, false
	}

	var res filter.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		return filter.Result{}, false
	}
	return res, true
}

func (c *CachedExecutor) putToCache(ctx context.Context, key string, res filter.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("Failed to encode result", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}
