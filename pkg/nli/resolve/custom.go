package resolve

import (
	"context"
	"log/slog"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
)

// CustomMappings is a Searcher that answers terms with explicit overrides
// from a keyed lookup and falls back to ranked search for everything else or
// when none of the override ids are known.
type CustomMappings struct {
	next      Searcher
	lookup    store.Lookup
	overrides map[string][]string
	logger    *slog.Logger
}

// NewCustomMappings wraps next. Override keys are matched case- and
// space-insensitively.
func NewCustomMappings(next Searcher, lookup store.Lookup, overrides map[string][]string, logger *slog.Logger) *CustomMappings {
	if logger == nil {
		logger = slog.Default()
	}
	normalised := make(map[string][]string, len(overrides))
	for term, ids := range overrides {
		key := rank.Normalise(term)
		normalised[key] = append(normalised[key], ids...)
	}
	return &CustomMappings{next: next, lookup: lookup, overrides: normalised, logger: logger}
}

// ClassSearch implements Searcher.
func (c *CustomMappings) ClassSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return c.search(ctx, "class", term, entity.KindInstance, func() (rank.Scores, error) {
		return c.next.ClassSearch(ctx, term, limit)
	})
}

// InstanceSearch implements Searcher.
func (c *CustomMappings) InstanceSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return c.search(ctx, "instance", term, entity.KindInstance, func() (rank.Scores, error) {
		return c.next.InstanceSearch(ctx, term, limit)
	})
}

// PivotSearch implements Searcher.
func (c *CustomMappings) PivotSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return c.search(ctx, "pivot", term, entity.KindInstance, func() (rank.Scores, error) {
		return c.next.PivotSearch(ctx, term, limit)
	})
}

// PredicateSearch implements Searcher.
func (c *CustomMappings) PredicateSearch(ctx context.Context, pivot entity.Entity, term string, incoming, outgoing bool, limit int) (rank.Scores, error) {
	return c.search(ctx, "predicate", term, entity.KindProperty, func() (rank.Scores, error) {
		return c.next.PredicateSearch(ctx, pivot, term, incoming, outgoing, limit)
	})
}

func (c *CustomMappings) search(ctx context.Context, kind, term string, want entity.Kind, fallback func() (rank.Scores, error)) (rank.Scores, error) {
	ids, ok := c.overrides[rank.Normalise(term)]
	if !ok {
		return fallback()
	}

	found, err := c.lookup.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		c.logger.Info("custom mapping ids unknown, using ranked search", "kind", kind, "term", term, "ids", ids)
		return fallback()
	}

	c.logger.Info("using custom mapping", "kind", kind, "term", term, "ids", ids)
	scores := make(rank.Scores, len(found))
	for i, e := range found {
		if e.Kind != entity.KindValue {
			e.Kind = want
		}
		scores[i] = rank.Score{Entry: e, Value: 1}
	}
	return scores, nil
}
