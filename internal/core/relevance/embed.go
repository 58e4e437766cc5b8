package relevance

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/agenthands/glyph/internal/llm"
)

// embedTexts embeds inputs batch by batch. Batches run one after another to
// bound memory; a batch goes out as one request when the provider batches,
// otherwise over at most workers concurrent calls.
func embedTexts(ctx context.Context, client llm.EmbedderClient, inputs []string, batchSize, workers int) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = len(inputs)
	}
	out := make([][]float64, 0, len(inputs))
	for start := 0; start < len(inputs); start += batchSize {
		end := min(start+batchSize, len(inputs))
		batch, err := embedBatch(ctx, client, inputs[start:end], workers)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func embedBatch(ctx context.Context, client llm.EmbedderClient, inputs []string, workers int) ([][]float64, error) {
	if b, ok := client.(llm.BatchEmbedder); ok {
		vectors, err := b.EmbedBatch(ctx, inputs)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(inputs) {
			return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(vectors), len(inputs))
		}
		out := make([][]float64, len(vectors))
		for i, v := range vectors {
			out[i] = widen(v)
		}
		return out, nil
	}

	out := make([][]float64, len(inputs))
	eg, ectx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i := range inputs {
		idx := i
		in := inputs[i]
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("embed %q: %v", in, r)
				}
			}()
			emb, err := client.Embed(ectx, in)
			if err != nil {
				return err
			}
			out[idx] = widen(emb)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// cosine is 0 for zero vectors and an error for mismatched dimensions.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(sim) {
		return 0, fmt.Errorf("similarity is NaN")
	}
	return sim, nil
}
