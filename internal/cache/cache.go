package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
	"github.com/agenthands/glyph/internal/logger"
)

const keyPrefix = "glyph:run:"

// Store is a byte cache with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Runner is the pipeline surface the cache wraps.
type Runner interface {
	Run(ctx context.Context, in model.Input) (*model.Result, error)
}

type RedisStore struct {
	rdb *goredis.Client
}

// NewRedisStore connects and pings; callers should run uncached on error.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CachedRunner serves repeated inputs from Store. Cache failures only cost
// a recomputation; failed runs are never cached.
type CachedRunner struct {
	Next  Runner
	Store Store
	TTL   time.Duration
	// Settings is folded into every key so config changes miss.
	Settings any
	Log      *logger.Logger
}

func NewCachedRunner(next Runner, store Store, ttl time.Duration, settings any, log *logger.Logger) *CachedRunner {
	return &CachedRunner{Next: next, Store: store, TTL: ttl, Settings: settings, Log: logger.OrNop(log)}
}

func (c *CachedRunner) Run(ctx context.Context, in model.Input) (*model.Result, error) {
	key, err := Key(in, c.Settings)
	if err != nil {
		c.Log.Warn("cache key failed, running uncached", "error", err)
		return c.Next.Run(ctx, in)
	}

	raw, ok, err := c.Store.Get(ctx, key)
	switch {
	case err != nil:
		c.Log.Warn("cache read failed", "key", key, "error", err)
	case ok:
		var cached model.Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.Log.Debug("cache hit", "key", key, "run_id", cached.Metadata.RunID)
			return &cached, nil
		}
		c.Log.Warn("cached result unreadable, recomputing", "key", key)
	}

	result, err := c.Next.Run(ctx, in)
	if err != nil {
		return result, err
	}

	if raw, err := json.Marshal(result); err != nil {
		c.Log.Warn("cache encode failed", "error", err)
	} else if err := c.Store.Set(ctx, key, raw, c.TTL); err != nil {
		c.Log.Warn("cache write failed", "key", key, "error", err)
	}
	return result, nil
}

// Key hashes the input together with the settings that shape the result.
func Key(in model.Input, settings any) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(in); err != nil {
		return "", fmt.Errorf("encode input: %w", err)
	}
	if err := enc.Encode(settings); err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Settings picks the result-shaping parts of cfg; credentials and
// connection details stay out of cache keys.
func Settings(cfg *config.Config) any {
	return struct {
		Graph          config.GraphConfig
		Centrality     config.CentralityConfig
		Subgraph       config.SubgraphConfig
		Relevance      config.RelevanceConfig
		Dedupe         config.DedupeConfig
		Concepts       config.ConceptsConfig
		Community      config.CommunityConfig
		Analysis       config.AnalysisConfig
		Summary        config.SummaryPrompts
		Provider       string
		Model          string
		EmbeddingModel string
	}{
		cfg.Graph, cfg.Centrality, cfg.Subgraph, cfg.Relevance, cfg.Dedupe,
		cfg.Concepts, cfg.Community, cfg.Analysis, cfg.Summary,
		cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.EmbeddingModel,
	}
}
