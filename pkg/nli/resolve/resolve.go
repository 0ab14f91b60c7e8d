// Package resolve maps the bindings of an analysed question to graph
// entities. A Resolver holds the mapping table of one question and must not
// be shared between questions.
package resolve

import (
	"context"
	"log/slog"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/rank"
)

// Searcher runs the ranked searches a resolver depends on.
type Searcher interface {
	ClassSearch(ctx context.Context, term string, limit int) (rank.Scores, error)
	InstanceSearch(ctx context.Context, term string, limit int) (rank.Scores, error)
	PivotSearch(ctx context.Context, term string, limit int) (rank.Scores, error)
	PredicateSearch(ctx context.Context, pivot entity.Entity, term string, incoming, outgoing bool, limit int) (rank.Scores, error)
}

// Observer is told about every search a resolver runs.
type Observer interface {
	Resolved(kind string, candidates int)
}

// Limits caps the number of candidates kept per binding kind.
type Limits struct {
	Class     int `yaml:"class"`
	Predicate int `yaml:"predicate"`
	Pivot     int `yaml:"pivot"`
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{Class: 3, Predicate: 6, Pivot: 1}
}

// Resolver resolves bindings of one question and memoises the results.
type Resolver struct {
	searcher Searcher
	ns       entity.Namespaces
	limits   Limits
	logger   *slog.Logger
	observer Observer

	mappings model.Mappings
	tried    map[model.DataModelBinding]bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNamespaces sets the prefixes used to expand resolved ids.
func WithNamespaces(ns entity.Namespaces) Option {
	return func(r *Resolver) { r.ns = ns }
}

// WithLimits replaces the default caps.
func WithLimits(l Limits) Option {
	return func(r *Resolver) { r.limits = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithObserver reports search outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// New creates a resolver with an empty mapping table.
func New(s Searcher, opts ...Option) *Resolver {
	r := &Resolver{
		searcher: s,
		ns:       entity.DefaultNamespaces(),
		limits:   DefaultLimits(),
		logger:   slog.Default(),
		mappings: make(model.Mappings),
		tried:    make(map[model.DataModelBinding]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mappings returns the mapping table.
func (r *Resolver) Mappings() model.Mappings {
	return r.mappings
}

// HasMappings reports whether b resolved to at least one candidate.
func (r *Resolver) HasMappings(b model.DataModelBinding) bool {
	return len(r.mappings[b]) > 0
}

// ResolveClass maps b to the best classes for its term.
func (r *Resolver) ResolveClass(ctx context.Context, b model.DataModelBinding) error {
	return r.resolve(ctx, "class", b, entity.KindInstance, r.limits.Class, func(limit int) (rank.Scores, error) {
		return r.searcher.ClassSearch(ctx, b.Term, limit)
	})
}

// ResolvePredicate maps b to the property paths around pivot that best match
// its term.
func (r *Resolver) ResolvePredicate(ctx context.Context, pivot entity.Entity, incoming, outgoing bool, b model.DataModelBinding) error {
	return r.resolve(ctx, "predicate", b, entity.KindProperty, r.limits.Predicate, func(limit int) (rank.Scores, error) {
		return r.searcher.PredicateSearch(ctx, pivot, b.Term, incoming, outgoing, limit)
	})
}

// ResolvePivot maps an INSTANCE binding to its single best entity and returns
// it. ok is false for other binding types and when nothing was found.
func (r *Resolver) ResolvePivot(ctx context.Context, b model.DataModelBinding) (pivot entity.Entity, ok bool, err error) {
	if b.Type != model.Instance {
		return entity.Entity{}, false, nil
	}
	err = r.resolve(ctx, "pivot", b, entity.KindInstance, r.limits.Pivot, func(limit int) (rank.Scores, error) {
		return r.searcher.PivotSearch(ctx, b.Term, limit)
	})
	if err != nil {
		return entity.Entity{}, false, err
	}
	scores := r.mappings[b]
	if len(scores) == 0 {
		return entity.Entity{}, false, nil
	}
	pivot, ok = scores[0].Entry.(entity.Entity)
	return pivot, ok, nil
}

// ResolveInstance maps b to up to limit instances.
func (r *Resolver) ResolveInstance(ctx context.Context, b model.DataModelBinding, limit int) error {
	return r.resolve(ctx, "instance", b, entity.KindInstance, limit, func(limit int) (rank.Scores, error) {
		return r.searcher.InstanceSearch(ctx, b.Term, limit)
	})
}

// ResolveTriple resolves every binding of t that can be resolved. A type
// triple maps its non-variable side as a class. Any other triple is read as
// instance, relation, value: the first side that resolves as a pivot anchors
// the predicate search, outgoing from a subject and incoming to an object.
// Mapped paths always read from the triple's subject to its object.
func (r *Resolver) ResolveTriple(ctx context.Context, t model.BoundTriple) error {
	if t.Predicate.Type == model.Type {
		switch {
		case t.Subject.Type == model.Variable:
			return r.ResolveClass(ctx, t.Object)
		case t.Object.Type == model.Variable:
			return r.ResolveClass(ctx, t.Subject)
		}
		if err := r.ResolveClass(ctx, t.Object); err != nil {
			return err
		}
		_, _, err := r.ResolvePivot(ctx, t.Subject)
		return err
	}

	pivot, ok, err := r.ResolvePivot(ctx, t.Subject)
	if err != nil {
		return err
	}
	incoming, outgoing, other := false, true, t.Object
	if !ok {
		if pivot, ok, err = r.ResolvePivot(ctx, t.Object); err != nil {
			return err
		}
		incoming, outgoing, other = true, false, t.Subject
	}
	if !ok {
		r.logger.Warn("no pivot for triple", "subject", t.Subject.String(), "object", t.Object.String())
		return nil
	}

	if t.Predicate.Type != model.Variable {
		_, mapped := r.mappings[t.Predicate]
		if err := r.ResolvePredicate(ctx, pivot, incoming, outgoing, t.Predicate); err != nil {
			return err
		}
		if incoming && !mapped {
			r.orientToSubject(t.Predicate)
		}
	}
	if other.Type == model.Instance {
		_, _, err = r.ResolvePivot(ctx, other)
	}
	return err
}

// orientToSubject rewrites the paths of b, found walking back from an object
// pivot, so they read from the subject to the object like the triple.
func (r *Resolver) orientToSubject(b model.DataModelBinding) {
	for i, s := range r.mappings[b] {
		if e, ok := s.Entry.(entity.Entity); ok && e.Kind == entity.KindPath {
			r.mappings[b][i].Entry = entity.Path(e.Path.Reversed())
		}
	}
}

// resolve is the shared memoised path of every Resolve method.
func (r *Resolver) resolve(ctx context.Context, kind string, b model.DataModelBinding, uriKind entity.Kind, limit int, search func(limit int) (rank.Scores, error)) error {
	if _, ok := r.mappings[b]; ok || r.tried[b] {
		return nil
	}
	r.tried[b] = true

	if id, ok := r.literalURI(b.Term); ok {
		e := entity.Entity{Kind: uriKind, ID: id}
		r.mappings[b] = rank.Scores{{Entry: e, Value: 1}}
		r.logger.Debug("mapped uri term", "kind", kind, "binding", b.Placeholder, "id", id)
		return nil
	}

	scores, err := search(limit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Error("search failed", "kind", kind, "binding", b.Placeholder, "term", b.Term, "error", err)
		r.observe(kind, 0)
		return nil
	}
	r.observe(kind, len(scores))
	if len(scores) == 0 {
		r.logger.Error("no candidates", "kind", kind, "binding", b.Placeholder, "term", b.Term)
		return nil
	}

	scores = append(rank.Scores(nil), scores...)
	scores.Sort()
	scores = scores.Limit(limit)
	for i, s := range scores {
		if e, ok := s.Entry.(entity.Entity); ok {
			scores[i].Entry = r.ns.ExpandEntity(e)
		}
	}
	r.mappings[b] = scores
	r.logger.Debug("mapped binding", "kind", kind, "binding", b.Placeholder, "term", b.Term, "candidates", len(scores))
	return nil
}

// literalURI reports whether term is written as an IRI or a known prefixed
// name, and returns it expanded.
func (r *Resolver) literalURI(term string) (string, bool) {
	if entity.IsIRI(term) {
		return r.ns.Expand(term), true
	}
	if expanded := r.ns.Expand(term); expanded != term && entity.IsIRI(expanded) {
		return expanded, true
	}
	return "", false
}

func (r *Resolver) observe(kind string, n int) {
	if r.observer != nil {
		r.observer.Resolved(kind, n)
	}
}
