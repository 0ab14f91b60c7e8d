// Package rank defines scores, the Rankable capability and the Ranker
// contract, together with the string-similarity rankers shipped with the
// pipeline.
package rank

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Rankable exposes one or more alternative strings a candidate can be compared
// by, e.g. a label and its synonyms.
type Rankable interface {
	RankableValues() []string
}

// Text is a plain multi-valued rank target.
type Text []string

// RankableValues implements Rankable.
func (t Text) RankableValues() []string { return t }

// Score pairs a candidate with its value. Higher is better.
type Score struct {
	Entry Rankable
	Value float64
}

// Scores is an ordered collection of scores.
type Scores []Score

// Sort orders scores by descending value, keeping the input order of ties.
func (s Scores) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Value > s[j].Value })
}

// Limit returns the first k scores. k <= 0 means no limit.
func (s Scores) Limit(k int) Scores {
	if k <= 0 || len(s) <= k {
		return s
	}
	return s[:k]
}

// Entries returns the candidates in order.
func (s Scores) Entries() []Rankable {
	out := make([]Rankable, len(s))
	for i, sc := range s {
		out[i] = sc.Entry
	}
	return out
}

// Ranker rescores candidates against a target. Implementations return a new
// slice sorted descending by value.
type Ranker interface {
	Score(ctx context.Context, candidates Scores, target Rankable) (Scores, error)
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// SimilarityFunc compares two normalised strings.
type SimilarityFunc func(a, b string) float64

// StringRanker turns a pure similarity function into a Ranker. A candidate's
// score is the best similarity over every pair of its values and the target's
// values.
type StringRanker struct {
	Name string
	Func SimilarityFunc
}

// Score implements Ranker.
func (r StringRanker) Score(ctx context.Context, candidates Scores, target Rankable) (Scores, error) {
	targets := normaliseAll(target.RankableValues())
	out := make(Scores, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := 0.0
		for _, v := range normaliseAll(c.Entry.RankableValues()) {
			for _, t := range targets {
				if sim := r.Func(v, t); sim > best {
					best = sim
				}
			}
		}
		out = append(out, Score{Entry: c.Entry, Value: best})
	}
	out.Sort()
	return out, nil
}

// Similarity implements Ranker.
func (r StringRanker) Similarity(_ context.Context, a, b string) (float64, error) {
	return r.Func(Normalise(a), Normalise(b)), nil
}

var folder = cases.Fold()

// Normalise applies NFKC, case folding and whitespace collapsing. Underscores
// count as spaces.
func Normalise(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func normaliseAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalise(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Levenshtein ranks by normalised edit distance.
func Levenshtein() StringRanker {
	return StringRanker{Name: "levenshtein", Func: LevenshteinSimilarity}
}

// JaroWinkler ranks by Jaro-Winkler similarity.
func JaroWinkler() StringRanker {
	return StringRanker{Name: "jarowinkler", Func: JaroWinklerSimilarity}
}

// Jaccard ranks by token-set overlap.
func Jaccard() StringRanker {
	return StringRanker{Name: "jaccard", Func: JaccardSimilarity}
}
