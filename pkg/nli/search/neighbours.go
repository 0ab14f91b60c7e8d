// Package search implements ranked candidate search over a graph store and
// the bounded neighbour traversal used to resolve predicates relative to a
// pivot entity.
package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
)

// RangeConfig controls one neighbour search. Strategies run after every hop
// and may change the configuration used for the next one.
type RangeConfig struct {
	Range      int
	Incoming   bool
	Outgoing   bool
	Strategies []Strategy
}

// Pruned is the outcome of a strategy for one hop. Rejected routes are dropped
// from the results; NotTraverse routes are kept but not extended.
type Pruned struct {
	Reject      []*entity.Route
	NotTraverse []*entity.Route
	Next        RangeConfig
}

// Strategy inspects the routes generated by a hop.
type Strategy func(routes []*entity.Route, cfg RangeConfig) Pruned

// NoCycles rejects routes whose last waypoint already occurs earlier on the
// route.
func NoCycles(routes []*entity.Route, cfg RangeConfig) Pruned {
	var cyclic []*entity.Route
	for _, r := range routes {
		if r.Revisits() {
			cyclic = append(cyclic, r)
		}
	}
	return Pruned{Reject: cyclic, NotTraverse: cyclic, Next: cfg}
}

// EdgeDirection stops following incoming edges once a hop has produced
// routes.
func EdgeDirection(routes []*entity.Route, cfg RangeConfig) Pruned {
	for _, r := range routes {
		if r.Len() >= 1 {
			cfg.Incoming = false
			break
		}
	}
	return Pruned{Next: cfg}
}

// Neighbours expands routes from a pivot over a fact source.
type Neighbours struct {
	facts  store.FactSource
	logger *slog.Logger
}

// NewNeighbours creates a neighbour search over facts.
func NewNeighbours(facts store.FactSource, logger *slog.Logger) *Neighbours {
	if logger == nil {
		logger = slog.Default()
	}
	return &Neighbours{facts: facts, logger: logger}
}

type memoKey struct {
	id  string
	dir entity.Direction
}

// Search returns every route of length 1..cfg.Range from pivot, hop by hop.
// Direct neighbours of a waypoint are fetched at most once per direction per
// call.
func (n *Neighbours) Search(ctx context.Context, pivot entity.Entity, cfg RangeConfig) ([]*entity.Route, error) {
	if cfg.Range < 1 {
		return nil, fmt.Errorf("%w: neighbour range must be at least 1, got %d", internalerr.ErrInvalidInput, cfg.Range)
	}
	if pivot.IsLiteral() || pivot.ID == "" {
		return nil, nil
	}

	memo := make(map[memoKey][]store.Edge)
	frontier := []*entity.Route{entity.Start(pivot)}
	var all []*entity.Route

	for hop := 0; hop < cfg.Range && len(frontier) > 0; hop++ {
		var generated []*entity.Route
		for _, r := range frontier {
			if r.Last().IsLiteral() {
				continue
			}
			next, err := n.direct(ctx, r, cfg, memo)
			if err != nil {
				return nil, err
			}
			generated = append(generated, next...)
		}

		reject := make(map[*entity.Route]bool)
		stop := make(map[*entity.Route]bool)
		strategies := cfg.Strategies
		for _, strategy := range strategies {
			p := strategy(generated, cfg)
			for _, r := range p.Reject {
				reject[r] = true
			}
			for _, r := range p.NotTraverse {
				stop[r] = true
			}
			cfg = p.Next
			cfg.Strategies = strategies
		}

		frontier = frontier[:0:0]
		for _, r := range generated {
			if reject[r] {
				continue
			}
			all = append(all, r)
			if !stop[r] {
				frontier = append(frontier, r)
			}
		}
		n.logger.Debug("neighbour hop", "pivot", pivot.ID, "hop", hop+1, "generated", len(generated), "kept", len(frontier))
	}
	return all, nil
}

// direct extends r by one hop in every enabled direction.
func (n *Neighbours) direct(ctx context.Context, r *entity.Route, cfg RangeConfig, memo map[memoKey][]store.Edge) ([]*entity.Route, error) {
	from := r.Last()
	prev, hasPrev := r.Previous()

	var out []*entity.Route
	follow := func(dir entity.Direction) error {
		edges, err := n.edges(ctx, from.ID, dir, memo)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if !e.Node.IsLiteral() && e.Node.ID == from.ID {
				continue
			}
			if hasPrev && e.Node.Key() == prev.Key() {
				continue
			}
			out = append(out, r.Extend(entity.Step{Property: e.Property, Direction: dir}, e.Node))
		}
		return nil
	}

	if cfg.Outgoing {
		if err := follow(entity.Outgoing); err != nil {
			return nil, err
		}
	}
	if cfg.Incoming {
		if err := follow(entity.Incoming); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Neighbours) edges(ctx context.Context, id string, dir entity.Direction, memo map[memoKey][]store.Edge) ([]store.Edge, error) {
	key := memoKey{id: id, dir: dir}
	if edges, ok := memo[key]; ok {
		return edges, nil
	}
	var (
		edges []store.Edge
		err   error
	)
	if dir == entity.Incoming {
		edges, err = n.facts.Incoming(ctx, id)
	} else {
		edges, err = n.facts.Outgoing(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s neighbours of %s: %w", dir, id, err)
	}
	memo[key] = edges
	return edges, nil
}

// Pivoted ranks the property paths leading away from a pivot.
type Pivoted struct {
	neighbours *Neighbours
	ranker     rank.Ranker
}

// NewPivoted combines a neighbour search with a ranker.
func NewPivoted(n *Neighbours, r rank.Ranker) *Pivoted {
	return &Pivoted{neighbours: n, ranker: r}
}

// Search ranks the distinct paths from pivot against target. With
// bestEntities set it returns the destinations of every route following the
// top path, scored with that path's value; otherwise the ranked paths as
// entity.Path entries.
func (p *Pivoted) Search(ctx context.Context, pivot entity.Entity, cfg RangeConfig, target rank.Rankable, bestEntities bool) (rank.Scores, error) {
	routes, err := p.neighbours.Search(ctx, pivot, cfg)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var paths rank.Scores
	for _, r := range routes {
		path := r.Path()
		key := path.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		paths = append(paths, rank.Score{Entry: entity.Path(path)})
	}
	if len(paths) == 0 {
		return nil, nil
	}

	ranked, err := p.ranker.Score(ctx, paths, target)
	if err != nil {
		return nil, err
	}
	if !bestEntities || len(ranked) == 0 {
		return ranked, nil
	}

	top := ranked[0]
	topKey := top.Entry.(entity.Entity).ID
	dests := make(map[string]bool)
	var out rank.Scores
	for _, r := range routes {
		if r.Path().Key() != topKey || dests[r.Last().Key()] {
			continue
		}
		dests[r.Last().Key()] = true
		out = append(out, rank.Score{Entry: r.Last(), Value: top.Value})
	}
	return out, nil
}
