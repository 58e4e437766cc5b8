package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/glyph/internal/config"
	"github.com/agenthands/glyph/internal/core/model"
)

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, false, m.failGet
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingRunner struct {
	calls int
	err   error
}

func (r *countingRunner) Run(ctx context.Context, in model.Input) (*model.Result, error) {
	r.calls++
	if r.err != nil {
		return &model.Result{}, r.err
	}
	return &model.Result{Metadata: model.Metadata{RunID: "run-1", Topic: in.Topic, TotalNodes: 3}}, nil
}

func input(topic string) model.Input {
	return model.Input{
		Topic:   topic,
		Sources: []model.Source{{Title: "A", Content: "alpha beta"}},
		Nodes:   []model.ExtractedNode{{Label: "alpha", Kind: model.KindConcept, Frequency: 1}},
	}
}

func TestCachedRunner_HitSkipsPipeline(t *testing.T) {
	store := newMemoryStore()
	next := &countingRunner{}
	runner := NewCachedRunner(next, store, time.Hour, Settings(config.Default()), nil)

	first, err := runner.Run(context.Background(), input("alpha"))
	require.NoError(t, err)
	second, err := runner.Run(context.Background(), input("alpha"))
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Metadata.RunID, second.Metadata.RunID)
	assert.Equal(t, 3, second.Metadata.TotalNodes)
	for _, ttl := range store.ttls {
		assert.Equal(t, time.Hour, ttl)
	}
}

func TestCachedRunner_DifferentInputsMiss(t *testing.T) {
	next := &countingRunner{}
	runner := NewCachedRunner(next, newMemoryStore(), time.Hour, nil, nil)

	_, _ = runner.Run(context.Background(), input("alpha"))
	_, _ = runner.Run(context.Background(), input("beta"))
	assert.Equal(t, 2, next.calls)
}

func TestCachedRunner_FailedRunsAreNotCached(t *testing.T) {
	store := newMemoryStore()
	next := &countingRunner{err: errors.New("boom")}
	runner := NewCachedRunner(next, store, time.Hour, nil, nil)

	_, err := runner.Run(context.Background(), input("alpha"))
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestCachedRunner_StoreErrorsFallThrough(t *testing.T) {
	store := newMemoryStore()
	store.failGet = errors.New("redis down")
	store.failSet = errors.New("redis down")
	next := &countingRunner{}
	runner := NewCachedRunner(next, store, time.Hour, nil, nil)

	result, err := runner.Run(context.Background(), input("alpha"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Metadata.TotalNodes)
	_, err = runner.Run(context.Background(), input("alpha"))
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestKey_DependsOnSettings(t *testing.T) {
	cfg := config.Default()
	a, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	b, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, keyPrefix)

	cfg.Subgraph.ConnectorStrategy = "chain"
	c, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	cfg = config.Default()
	cfg.LLM.APIKey = "secret"
	d, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	assert.Equal(t, a, d, "credentials do not affect keys")

	cfg = config.Default()
	cfg.LLM.EmbeddingModel = "text-embedding-3-large"
	e, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	assert.NotEqual(t, a, e, "embedding model changes relevance scores")

	cfg = config.Default()
	cfg.Analysis.MaxGaps = 5
	f, err := Key(input("alpha"), Settings(cfg))
	require.NoError(t, err)
	assert.NotEqual(t, a, f)
}
