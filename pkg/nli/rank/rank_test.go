package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoresSortIsStableDescending(t *testing.T) {
	s := Scores{
		{Entry: Text{"a"}, Value: 0.5},
		{Entry: Text{"b"}, Value: 0.9},
		{Entry: Text{"c"}, Value: 0.5},
	}
	s.Sort()
	assert.Equal(t, []Rankable{Text{"b"}, Text{"a"}, Text{"c"}}, s.Entries())
	assert.Len(t, s.Limit(2), 2)
	assert.Len(t, s.Limit(0), 3)
	assert.Len(t, s.Limit(10), 3)
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("spouse", "spouse"))
	assert.InDelta(t, 1-3.0/7.0, LevenshteinSimilarity("kitten", "sitting"), 1e-9)
	assert.Equal(t, 0.0, LevenshteinSimilarity("abc", ""))
	assert.Equal(t, 1.0, LevenshteinSimilarity("", ""))
}

func TestJaroWinklerSimilarity(t *testing.T) {
	assert.InDelta(t, 0.961, JaroWinklerSimilarity("martha", "marhta"), 1e-3)
	assert.InDelta(t, 0.840, JaroWinklerSimilarity("dwayne", "duane"), 1e-3)
	assert.Equal(t, 0.0, JaroWinklerSimilarity("abc", "xyz"))
	assert.Equal(t, 1.0, JaroWinklerSimilarity("same", "same"))
}

func TestJaccardSimilarity(t *testing.T) {
	assert.InDelta(t, 0.25, JaccardSimilarity("place of birth", "birth date"), 1e-9)
	assert.Equal(t, 1.0, JaccardSimilarity("", ""))
}

func TestNormalise(t *testing.T) {
	assert.Equal(t, "birth place", Normalise("  Birth_PLACE "))
	assert.Equal(t, "fi", Normalise("ﬁ"))
}

func TestStringRankerUsesBestValue(t *testing.T) {
	candidates := Scores{
		{Entry: Text{"partner"}},
		{Entry: Text{"mother", "wife"}},
		{Entry: Text{"birth place"}},
	}
	out, err := Levenshtein().Score(context.Background(), candidates, Text{"wife", "spouse"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, Text{"mother", "wife"}, out[0].Entry)
	assert.Equal(t, 1.0, out[0].Value)

	sim, err := JaroWinkler().Similarity(context.Background(), "Wife", "wife")
	require.NoError(t, err)
	assert.Equal(t, 1.0, sim)
}

type fakeEmbedder struct {
	vectors map[string][]float64
	calls   int
	err     error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestEmbeddingRanker(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"wife":        {1, 0},
		"spouse":      {0.9, 0.1},
		"birth place": {0, 1},
	}}
	r := NewEmbeddingRanker(emb)

	out, err := r.Score(context.Background(), Scores{{Entry: Text{"birth place"}}, {Entry: Text{"spouse"}}}, Text{"wife"})
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, Text{"spouse"}, out[0].Entry)
	assert.Greater(t, out[0].Value, out[1].Value)

	sim, err := r.Similarity(context.Background(), "wife", "birth place")
	require.NoError(t, err)
	assert.InDelta(t, 0, sim, 1e-9)

	emb.err = errors.New("boom")
	_, err = r.Score(context.Background(), Scores{{Entry: Text{"spouse"}}}, Text{"wife"})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 2}))
}
