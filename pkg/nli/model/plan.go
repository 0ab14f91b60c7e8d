package model

import (
	"fmt"
	"strings"

	"github.com/cognicore/nli/pkg/nli/internalerr"
)

// TriplePattern is an "S P O" template whose slots are placeholders.
type TriplePattern struct {
	Subject   string
	Predicate string
	Object    string
}

// ParseTriplePattern parses a space-separated three-slot template.
func ParseTriplePattern(s string) (TriplePattern, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return TriplePattern{}, fmt.Errorf("%w: triple pattern %q must have 3 slots", internalerr.ErrInvalidConfig, s)
	}
	return TriplePattern{Subject: fields[0], Predicate: fields[1], Object: fields[2]}, nil
}

// Slots returns subject, predicate and object in order.
func (t TriplePattern) Slots() [3]string {
	return [3]string{t.Subject, t.Predicate, t.Object}
}

func (t TriplePattern) String() string {
	return t.Subject + " " + t.Predicate + " " + t.Object
}

// BoundTriple is a triple pattern whose slots have been replaced by the
// bindings they stand for.
type BoundTriple struct {
	Subject   DataModelBinding
	Predicate DataModelBinding
	Object    DataModelBinding
}

// QueryPlan is an ordered sequence of triple patterns.
type QueryPlan []TriplePattern

// ParseQueryPlan parses a list of triple templates.
func ParseQueryPlan(triples []string) (QueryPlan, error) {
	plan := make(QueryPlan, 0, len(triples))
	for _, s := range triples {
		tp, err := ParseTriplePattern(s)
		if err != nil {
			return nil, err
		}
		plan = append(plan, tp)
	}
	return plan, nil
}

// Variables returns the distinct ?VAR placeholders of the plan in order of
// first appearance.
func (p QueryPlan) Variables() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, tp := range p {
		for _, slot := range tp.Slots() {
			if IsVariable(slot) && !seen[slot] {
				seen[slot] = true
				vars = append(vars, slot)
			}
		}
	}
	return vars
}

// QueryPlannerPattern associates a plan id with the plans to try for it.
// PlanID is the exact space-joined placeholder sequence a cleaned binding
// sequence must render to.
type QueryPlannerPattern struct {
	PlanID string
	Plans  []QueryPlan
}

// QueryType is the kind of query a question asks for.
type QueryType uint8

const (
	Select QueryType = iota + 1
	Ask
	Aggregate
)

func (q QueryType) String() string {
	switch q {
	case Select:
		return "SELECT"
	case Ask:
		return "ASK"
	case Aggregate:
		return "AGGREGATE"
	}
	return fmt.Sprintf("QueryType(%d)", uint8(q))
}

// UnmarshalText parses SELECT, ASK or AGGREGATE.
func (q *QueryType) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "SELECT":
		*q = Select
	case "ASK":
		*q = Ask
	case "AGGREGATE":
		*q = Aggregate
	default:
		return fmt.Errorf("%w: unknown query type %q", internalerr.ErrInvalidConfig, text)
	}
	return nil
}
