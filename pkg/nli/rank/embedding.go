package rank

import (
	"context"
	"fmt"
	"math"

	"github.com/cloudwego/eino/components/embedding"
)

// EmbeddingRanker scores by cosine similarity of embedding vectors. All values
// of one Score call are embedded in a single request.
type EmbeddingRanker struct {
	Embedder embedding.Embedder
}

// NewEmbeddingRanker creates a ranker backed by an embedding service.
func NewEmbeddingRanker(e embedding.Embedder) *EmbeddingRanker {
	return &EmbeddingRanker{Embedder: e}
}

// Score implements Ranker.
func (r *EmbeddingRanker) Score(ctx context.Context, candidates Scores, target Rankable) (Scores, error) {
	targets := normaliseAll(target.RankableValues())
	if len(candidates) == 0 || len(targets) == 0 {
		out := make(Scores, len(candidates))
		for i, c := range candidates {
			out[i] = Score{Entry: c.Entry}
		}
		return out, nil
	}

	var texts []string
	index := make(map[string]int)
	add := func(s string) {
		if _, ok := index[s]; !ok {
			index[s] = len(texts)
			texts = append(texts, s)
		}
	}
	values := make([][]string, len(candidates))
	for _, t := range targets {
		add(t)
	}
	for i, c := range candidates {
		values[i] = normaliseAll(c.Entry.RankableValues())
		for _, v := range values[i] {
			add(v)
		}
	}

	vectors, err := r.Embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	out := make(Scores, 0, len(candidates))
	for i, c := range candidates {
		best := math.Inf(-1)
		for _, v := range values[i] {
			for _, t := range targets {
				if sim := Cosine(vectors[index[v]], vectors[index[t]]); sim > best {
					best = sim
				}
			}
		}
		if math.IsInf(best, -1) {
			best = 0
		}
		out = append(out, Score{Entry: c.Entry, Value: best})
	}
	out.Sort()
	return out, nil
}

// Similarity implements Ranker.
func (r *EmbeddingRanker) Similarity(ctx context.Context, a, b string) (float64, error) {
	vectors, err := r.Embedder.EmbedStrings(ctx, []string{Normalise(a), Normalise(b)})
	if err != nil {
		return 0, fmt.Errorf("embed pair: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("embedder returned %d vectors for 2 texts", len(vectors))
	}
	return Cosine(vectors[0], vectors[1]), nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
