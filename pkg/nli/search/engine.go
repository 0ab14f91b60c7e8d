package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/lexicon"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
)

// Backend is what the engine needs from a graph store.
type Backend interface {
	store.Searcher
	store.FactSource
}

// Config tunes candidate retrieval and traversal.
type Config struct {
	// PreLimit bounds the candidates fetched from the backend before ranking.
	PreLimit int `yaml:"pre_limit"`
	// RootBlend is the weight of the ranked score when boosting root classes;
	// the is-root signal gets the rest.
	RootBlend float64 `yaml:"root_blend"`
	// Range is the maximum number of hops of a predicate path.
	Range int `yaml:"range"`
	// NoCycles rejects routes that revisit a waypoint.
	NoCycles bool `yaml:"no_cycles"`
	// EdgeDirection stops following incoming edges after the first hop.
	EdgeDirection bool `yaml:"edge_direction"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		PreLimit:  50,
		RootBlend: 0.5,
		Range:     2,
		NoCycles:  true,
	}
}

// Engine runs ranked class, instance and predicate searches.
type Engine struct {
	backend Backend
	ranker  rank.Ranker
	pivoted *Pivoted
	lexicon *lexicon.Lexicon
	cfg     Config
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLexicon expands rank targets with synonyms.
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(e *Engine) { e.lexicon = l }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a search engine over backend ranking with r.
func NewEngine(backend Backend, r rank.Ranker, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		ranker:  r,
		cfg:     DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pivoted = NewPivoted(NewNeighbours(backend, e.logger), r)
	return e
}

// ClassSearch ranks classes matching term and boosts those that are not
// subclasses or members of another candidate.
func (e *Engine) ClassSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	target := e.target(term)
	ranked, err := e.ranked(ctx, store.TargetClass, target)
	if err != nil {
		return nil, err
	}

	roots, err := e.roots(ctx, ranked)
	if err != nil {
		return nil, err
	}
	boosted := make(rank.Scores, len(ranked))
	for i, c := range ranked {
		signal := 0.0
		if roots[i] {
			signal = 1
		}
		boosted[i] = rank.Score{Entry: c.Entry, Value: e.cfg.RootBlend*c.Value + (1-e.cfg.RootBlend)*signal}
	}
	boosted.Sort()
	return boosted.Limit(limit), nil
}

// InstanceSearch ranks instances matching term.
func (e *Engine) InstanceSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	ranked, err := e.ranked(ctx, store.TargetInstance, e.target(term))
	if err != nil {
		return nil, err
	}
	return ranked.Limit(limit), nil
}

// PivotSearch ranks candidate pivots for term.
func (e *Engine) PivotSearch(ctx context.Context, term string, limit int) (rank.Scores, error) {
	return e.InstanceSearch(ctx, term, limit)
}

// PredicateSearch ranks the property paths around pivot against term.
func (e *Engine) PredicateSearch(ctx context.Context, pivot entity.Entity, term string, incoming, outgoing bool, limit int) (rank.Scores, error) {
	paths, err := e.pivoted.Search(ctx, pivot, e.rangeConfig(incoming, outgoing), e.target(term), false)
	if err != nil {
		return nil, err
	}
	return paths.Limit(limit), nil
}

// Destinations returns the entities reached from pivot along the path that
// best matches term.
func (e *Engine) Destinations(ctx context.Context, pivot entity.Entity, term string, incoming, outgoing bool) (rank.Scores, error) {
	return e.pivoted.Search(ctx, pivot, e.rangeConfig(incoming, outgoing), e.target(term), true)
}

func (e *Engine) rangeConfig(incoming, outgoing bool) RangeConfig {
	cfg := RangeConfig{Range: e.cfg.Range, Incoming: incoming, Outgoing: outgoing}
	if cfg.Range < 1 {
		cfg.Range = 1
	}
	if e.cfg.NoCycles {
		cfg.Strategies = append(cfg.Strategies, NoCycles)
	}
	if e.cfg.EdgeDirection {
		cfg.Strategies = append(cfg.Strategies, EdgeDirection)
	}
	return cfg
}

func (e *Engine) target(term string) rank.Text {
	return e.lexicon.Target(term)
}

// ranked fetches candidates for every value of target and ranks the union.
func (e *Engine) ranked(ctx context.Context, kind store.Target, target rank.Text) (rank.Scores, error) {
	seen := make(map[string]bool)
	var candidates rank.Scores
	for _, text := range target {
		found, err := e.backend.Search(ctx, store.Query{Target: kind, Text: text, Limit: e.cfg.PreLimit})
		if err != nil {
			return nil, fmt.Errorf("%s search %q: %w", kind, text, err)
		}
		for _, c := range found {
			key := keyOf(c.Entry)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	ranked, err := e.ranker.Score(ctx, candidates, target)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("ranked search", "target", kind.String(), "term", target[0], "candidates", len(ranked))
	return ranked, nil
}

// roots flags the candidates that are neither typed as nor a subclass of
// another candidate. Each candidate's outgoing edges are read once.
func (e *Engine) roots(ctx context.Context, candidates rank.Scores) ([]bool, error) {
	ids := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if ce, ok := c.Entry.(entity.Entity); ok {
			ids[ce.ID] = true
		}
	}

	roots := make([]bool, len(candidates))
	for i, c := range candidates {
		roots[i] = true
		ce, ok := c.Entry.(entity.Entity)
		if !ok {
			continue
		}
		edges, err := e.backend.Outgoing(ctx, ce.ID)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if store.IsClassPredicate(edge.Property.ID) && edge.Node.ID != ce.ID && ids[edge.Node.ID] {
				roots[i] = false
				break
			}
		}
	}
	return roots, nil
}

func keyOf(r rank.Rankable) string {
	if e, ok := r.(entity.Entity); ok {
		return e.Key()
	}
	return fmt.Sprint(r.RankableValues())
}
