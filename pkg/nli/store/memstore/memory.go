package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/store"
)

// Store is an in-memory implementation of store.Graph for tests and small
// graphs.
type Store struct {
	mu    sync.RWMutex
	facts map[store.Fact]struct{}
	out   map[string][]store.Fact
	in    map[string][]store.Fact

	labels     map[string][]string
	nodes      map[string]int // reference counts of non-literal subjects and objects
	classes    map[string]int
	properties map[string]int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		facts:      make(map[store.Fact]struct{}),
		out:        make(map[string][]store.Fact),
		in:         make(map[string][]store.Fact),
		labels:     make(map[string][]string),
		nodes:      make(map[string]int),
		classes:    make(map[string]int),
		properties: make(map[string]int),
	}
}

// Close implements store.Graph.
func (s *Store) Close() error { return nil }

// Link adds facts. Existing facts are ignored.
func (s *Store) Link(ctx context.Context, facts ...store.Fact) error {
	for _, f := range facts {
		if err := store.ValidateFact(f); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range facts {
		if _, ok := s.facts[f]; ok {
			continue
		}
		s.facts[f] = struct{}{}
		s.out[f.Subject] = append(s.out[f.Subject], f)
		s.nodes[f.Subject]++
		s.properties[f.Predicate]++
		if f.Literal {
			if store.IsLabelPredicate(f.Predicate) {
				s.labels[f.Subject] = append(s.labels[f.Subject], f.Object)
			}
			continue
		}
		s.in[f.Object] = append(s.in[f.Object], f)
		s.nodes[f.Object]++
		if store.IsClassPredicate(f.Predicate) {
			s.classes[f.Object]++
			if f.Predicate == entity.RDFSSubClassOf {
				s.classes[f.Subject]++
			}
		}
	}
	return nil
}

// Unlink removes facts. Missing facts are ignored.
func (s *Store) Unlink(ctx context.Context, facts ...store.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range facts {
		if _, ok := s.facts[f]; !ok {
			continue
		}
		delete(s.facts, f)
		s.out[f.Subject] = without(s.out[f.Subject], f)
		decrement(s.nodes, f.Subject)
		decrement(s.properties, f.Predicate)
		if f.Literal {
			if store.IsLabelPredicate(f.Predicate) {
				s.labels[f.Subject] = withoutString(s.labels[f.Subject], f.Object)
			}
			continue
		}
		s.in[f.Object] = without(s.in[f.Object], f)
		decrement(s.nodes, f.Object)
		if store.IsClassPredicate(f.Predicate) {
			decrement(s.classes, f.Object)
			if f.Predicate == entity.RDFSSubClassOf {
				decrement(s.classes, f.Subject)
			}
		}
	}
	return nil
}

// Outgoing implements store.FactSource.
func (s *Store) Outgoing(ctx context.Context, subject string) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := s.out[subject]
	edges := make([]store.Edge, 0, len(facts))
	for _, f := range facts {
		node := entity.Value(f.Object)
		if !f.Literal {
			node = s.entityLocked(f.Object, entity.KindInstance)
		}
		edges = append(edges, store.Edge{Property: s.entityLocked(f.Predicate, entity.KindProperty), Node: node})
	}
	return edges, nil
}

// Incoming implements store.FactSource.
func (s *Store) Incoming(ctx context.Context, object string) ([]store.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := s.in[object]
	edges := make([]store.Edge, 0, len(facts))
	for _, f := range facts {
		edges = append(edges, store.Edge{
			Property: s.entityLocked(f.Predicate, entity.KindProperty),
			Node:     s.entityLocked(f.Subject, entity.KindInstance),
		})
	}
	return edges, nil
}

// Lookup implements store.Lookup.
func (s *Store) Lookup(ctx context.Context, ids []string) ([]entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Entity, 0, len(ids))
	for _, id := range ids {
		switch {
		case s.properties[id] > 0:
			out = append(out, s.entityLocked(id, entity.KindProperty))
		case s.nodes[id] > 0:
			out = append(out, s.entityLocked(id, entity.KindInstance))
		}
	}
	return out, nil
}

// Search implements store.Searcher by token overlap with labels and local
// names.
func (s *Store) Search(ctx context.Context, q store.Query) (rank.Scores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kind := entity.KindInstance
	var pool map[string]int
	switch q.Target {
	case store.TargetClass:
		pool = s.classes
	case store.TargetProperty:
		pool = s.properties
		kind = entity.KindProperty
	default:
		pool = s.nodes
	}

	var results rank.Scores
	for id, n := range pool {
		if n == 0 {
			continue
		}
		if q.Target == store.TargetInstance && (s.classes[id] > 0 || s.properties[id] > 0) {
			continue
		}
		if v := store.Overlap(q.Text, id, s.labels[id]); v > 0 {
			results = append(results, rank.Score{Entry: s.entityLocked(id, kind), Value: v})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Value != results[j].Value {
			return results[i].Value > results[j].Value
		}
		return results[i].Entry.(entity.Entity).ID < results[j].Entry.(entity.Entity).ID
	})
	return results.Limit(q.Limit), nil
}

// Stats implements store.Graph.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Stats{
		Facts:      len(s.facts),
		Nodes:      countLive(s.nodes),
		Classes:    countLive(s.classes),
		Properties: countLive(s.properties),
	}, nil
}

func (s *Store) entityLocked(id string, kind entity.Kind) entity.Entity {
	return store.NewEntity(id, kind, s.labels[id])
}

func countLive(m map[string]int) int {
	n := 0
	for _, c := range m {
		if c > 0 {
			n++
		}
	}
	return n
}

func decrement(m map[string]int, key string) {
	if m[key] <= 1 {
		delete(m, key)
		return
	}
	m[key]--
}

func without(facts []store.Fact, f store.Fact) []store.Fact {
	out := facts[:0]
	for _, x := range facts {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}

func withoutString(in []string, v string) []string {
	out := in[:0]
	for _, x := range in {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
