//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/glyph/internal/core"
	"github.com/agenthands/glyph/internal/driver"
)

func TestPersistRoundTrip(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.Memgraph.URI == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}

	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph, nil)
	if err != nil {
		t.Skipf("Skipping integration test: memgraph unavailable: %v", err)
	}
	defer d.Close(ctx)

	engine := core.NewEngine(cfg, nil, nil, d, nil)
	require.NoError(t, engine.BuildIndices(ctx))

	result, err := engine.Run(ctx, sampleInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.Concepts)
	require.NoError(t, engine.Save(ctx, result))

	runID := result.Metadata.RunID
	defer func() {
		assert.NoError(t, engine.DeleteRun(ctx, runID))
	}()

	run, err := engine.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "machine learning", run.Topic)
	assert.Equal(t, int64(result.Metadata.TotalNodes), run.TotalNodes)
	assert.Equal(t, int64(result.Metadata.MinimalEdges), run.MinimalEdges)

	// Concepts come back in rank order.
	want := make([]string, len(result.Concepts))
	for i, c := range result.Concepts {
		want[i] = c.Name
	}
	assert.Equal(t, want, run.Concepts)

	// Two components are bridged by a synthetic connector.
	assert.Equal(t, 2, result.Metadata.ConnectedComponents)
	assert.Equal(t, 1, result.Metadata.MinimalConnectedComponents)
}
