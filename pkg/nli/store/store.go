package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/rank"
)

// Graph is the interface the reference stores implement: candidate search,
// graph facts and keyed lookup over one set of facts.
type Graph interface {
	Searcher
	FactSource
	Lookup

	Link(ctx context.Context, facts ...Fact) error
	Unlink(ctx context.Context, facts ...Fact) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Fact is one subject-predicate-object statement. Object holds the lexical
// form when Literal is set.
type Fact struct {
	Subject   string
	Predicate string
	Object    string
	Literal   bool
}

func (f Fact) String() string {
	if f.Literal {
		return fmt.Sprintf("<%s> <%s> %q", f.Subject, f.Predicate, f.Object)
	}
	return fmt.Sprintf("<%s> <%s> <%s>", f.Subject, f.Predicate, f.Object)
}

// Stats summarises store contents.
type Stats struct {
	Facts      int
	Nodes      int
	Classes    int
	Properties int
}

// Target selects which kind of entity a search looks for.
type Target uint8

const (
	TargetInstance Target = iota + 1
	TargetClass
	TargetProperty
)

func (t Target) String() string {
	switch t {
	case TargetInstance:
		return "instance"
	case TargetClass:
		return "class"
	case TargetProperty:
		return "property"
	}
	return fmt.Sprintf("Target(%d)", uint8(t))
}

// Query is the structured candidate query sent to a search backend.
type Query struct {
	Target Target
	Text   string
	Limit  int
}

// Searcher returns an unranked candidate set. The score values are backend
// relevance and may be ignored by callers.
type Searcher interface {
	Search(ctx context.Context, q Query) (rank.Scores, error)
}

// Edge is one fact seen from a node: the property and the node at the other
// end.
type Edge struct {
	Property entity.Entity
	Node     entity.Entity
}

// FactSource lists the direct neighbours of a node.
type FactSource interface {
	Outgoing(ctx context.Context, subject string) ([]Edge, error)
	Incoming(ctx context.Context, object string) ([]Edge, error)
}

// Lookup fetches entities by id. Unknown ids are skipped.
type Lookup interface {
	Lookup(ctx context.Context, ids []string) ([]entity.Entity, error)
}

// LabelPredicates are the predicates whose literal objects name their subject.
var LabelPredicates = []string{
	entity.RDFSLabel,
	"http://www.w3.org/2004/02/skos/core#prefLabel",
	"http://www.w3.org/2004/02/skos/core#altLabel",
	"http://xmlns.com/foaf/0.1/name",
}

// IsLabelPredicate reports whether p names its subject.
func IsLabelPredicate(p string) bool {
	for _, lp := range LabelPredicates {
		if lp == p {
			return true
		}
	}
	return false
}

// IsClassPredicate reports whether p relates a node to a class.
func IsClassPredicate(p string) bool {
	return p == entity.RDFType || p == entity.RDFSSubClassOf
}

// NewEntity builds an entity from its id, kind and the labels known for it.
func NewEntity(id string, kind entity.Kind, labels []string) entity.Entity {
	e := entity.Entity{Kind: kind, ID: id}
	if len(labels) > 0 {
		e.Label = labels[0]
		e.Aliases = append([]string(nil), labels[1:]...)
	}
	return e
}

// Overlap is the share of query tokens found among the tokens of values or
// of the humanised local name of id. It is the relevance the reference stores
// report and the filter they apply.
func Overlap(query, id string, values []string) float64 {
	qTokens := strings.Fields(rank.Normalise(query))
	if len(qTokens) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	all := make([]string, 0, len(values)+1)
	all = append(all, values...)
	all = append(all, entity.Humanise(entity.LocalName(id)))
	for _, v := range all {
		for _, tok := range strings.Fields(rank.Normalise(v)) {
			have[tok] = struct{}{}
		}
	}
	found := 0
	for _, tok := range qTokens {
		if _, ok := have[tok]; ok {
			found++
		}
	}
	return float64(found) / float64(len(qTokens))
}

// ValidateFact rejects facts with empty slots.
func ValidateFact(f Fact) error {
	if strings.TrimSpace(f.Subject) == "" || strings.TrimSpace(f.Predicate) == "" || (!f.Literal && strings.TrimSpace(f.Object) == "") {
		return fmt.Errorf("%w: incomplete fact %s", internalerr.ErrInvalidInput, f)
	}
	return nil
}
