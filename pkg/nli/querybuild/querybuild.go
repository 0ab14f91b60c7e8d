// Package querybuild assembles a graph query from a query plan and the
// mapping table of a resolved question.
//
// Every slot of a triple expands to a list of candidate strings; the cartesian
// product of a triple's candidates is joined with UNION and triples are
// joined as a conjunction. The builder never limits candidates: mapping lists
// must already be capped by the resolver. Property paths are written in
// their stored order, so they must read from the triple's subject to its
// object.
package querybuild

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/model"
)

// TypeToken is the rendering of the type relation.
const TypeToken = "a"

// FallbackPrefix is the scheme of the synthetic IRIs written for unmapped
// bindings.
const FallbackPrefix = "urn:nli:term:"

// Config controls how far unresolved variables and type relations expand.
type Config struct {
	// VarRange is the longest chain a variable predicate may stand for.
	VarRange int `yaml:"var_range"`
	// TypeRange is the longest type chain: rdf:type followed by
	// rdfs:subClassOf hops.
	TypeRange int `yaml:"type_range"`
}

// DefaultConfig expands variables and type relations to single hops.
func DefaultConfig() Config {
	return Config{VarRange: 1, TypeRange: 1}
}

// Builder renders query plans. It holds no per-build state and can be shared.
type Builder struct {
	cfg Config
}

// New creates a builder.
func New(cfg Config) *Builder {
	if cfg.VarRange < 1 {
		cfg.VarRange = 1
	}
	if cfg.TypeRange < 1 {
		cfg.TypeRange = 1
	}
	return &Builder{cfg: cfg}
}

// Build renders plan as a complete query of type qt.
func (b *Builder) Build(qt model.QueryType, plan model.QueryPlan, pool model.BindingPool, mappings model.Mappings) (string, error) {
	lines, err := b.Patterns(plan, pool, mappings)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	vars := plan.Variables()
	switch qt {
	case model.Ask:
		sb.WriteString("ASK WHERE {\n")
	case model.Aggregate:
		if len(vars) == 0 {
			return "", fmt.Errorf("%w: aggregate plan without variables", internalerr.ErrInvalidInput)
		}
		fmt.Fprintf(&sb, "SELECT (COUNT(DISTINCT %s) AS ?count) WHERE {\n", vars[0])
	case model.Select:
		projection := "*"
		if len(vars) > 0 {
			projection = strings.Join(vars, " ")
		}
		fmt.Fprintf(&sb, "SELECT DISTINCT %s WHERE {\n", projection)
	default:
		return "", fmt.Errorf("%w: unknown query type %s", internalerr.ErrInvalidInput, qt)
	}
	for _, line := range lines {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString(" .\n")
	}
	sb.WriteString("}")
	return sb.String(), nil
}

// Patterns renders the body of the query, one line per triple pattern.
// Temporary variables are numbered from 1 on every call.
func (b *Builder) Patterns(plan model.QueryPlan, pool model.BindingPool, mappings model.Mappings) ([]string, error) {
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: empty query plan", internalerr.ErrInvalidInput)
	}
	st := &build{cfg: b.cfg, pool: pool, mappings: mappings}

	lines := make([]string, 0, len(plan))
	for _, tp := range plan {
		subjects := st.node(tp.Subject)
		predicates := st.predicate(tp.Predicate)
		objects := st.node(tp.Object)

		var statements []string
		for _, s := range subjects {
			for _, p := range predicates {
				for _, o := range objects {
					statements = append(statements, s+" "+p+" "+o)
				}
			}
		}
		if len(statements) == 1 {
			lines = append(lines, statements[0])
			continue
		}
		for i, s := range statements {
			statements[i] = "{ " + s + " }"
		}
		lines = append(lines, strings.Join(statements, " UNION "))
	}
	return lines, nil
}

// build is the state of one Patterns call.
type build struct {
	cfg      Config
	pool     model.BindingPool
	mappings model.Mappings
	tmp      int
}

func (b *build) nextTmp() string {
	b.tmp++
	return "?TMP_" + strconv.Itoa(b.tmp)
}

// chain joins hops through fresh temporary variables.
func (b *build) chain(hops []string) string {
	out := hops[0]
	for _, h := range hops[1:] {
		t := b.nextTmp()
		out += " " + t + " . " + t + " " + h
	}
	return out
}

func (b *build) node(slot string) []string {
	if model.IsVariable(slot) {
		return []string{slot}
	}
	binding, ok := b.pool.Get(slot)
	if !ok {
		return []string{slot}
	}
	if binding.Type == model.Equals {
		return []string{literal(binding.Term)}
	}

	var out []string
	for _, s := range b.mappings[binding] {
		e, ok := s.Entry.(entity.Entity)
		if !ok {
			continue
		}
		switch e.Kind {
		case entity.KindValue:
			out = append(out, literal(e.ID))
		case entity.KindPath:
			continue
		default:
			out = append(out, iri(e.ID))
		}
	}
	if len(out) == 0 {
		return []string{fallback(binding.Term)}
	}
	return out
}

func (b *build) predicate(slot string) []string {
	switch {
	case model.IsVariable(slot):
		out := make([]string, 0, b.cfg.VarRange)
		for n := 1; n <= b.cfg.VarRange; n++ {
			path := slot
			for i := 1; i < n; i++ {
				node := b.nextTmp()
				path += " " + node + " . " + node + " " + b.nextTmp()
			}
			out = append(out, path)
		}
		return out
	case model.IsTypeRelation(slot):
		out := make([]string, 0, b.cfg.TypeRange)
		for n := 1; n <= b.cfg.TypeRange; n++ {
			hops := []string{TypeToken}
			for i := 1; i < n; i++ {
				hops = append(hops, iri(entity.RDFSSubClassOf))
			}
			out = append(out, b.chain(hops))
		}
		return out
	}

	binding, ok := b.pool.Get(slot)
	if !ok {
		return []string{slot}
	}
	var out []string
	for _, s := range b.mappings[binding] {
		e, ok := s.Entry.(entity.Entity)
		if !ok {
			continue
		}
		switch e.Kind {
		case entity.KindPath:
			if len(e.Path) == 0 {
				continue
			}
			hops := make([]string, len(e.Path))
			for i, step := range e.Path {
				hops[i] = stepString(step)
			}
			out = append(out, b.chain(hops))
		case entity.KindValue:
			continue
		default:
			out = append(out, iri(e.ID))
		}
	}
	if len(out) == 0 {
		return []string{fallback(binding.Term)}
	}
	return out
}

func stepString(s entity.Step) string {
	if s.Direction == entity.Incoming {
		return "^" + iri(s.Property.ID)
	}
	if s.IsTypeRelation() {
		return TypeToken
	}
	return iri(s.Property.ID)
}

func iri(id string) string {
	return "<" + id + ">"
}

func literal(s string) string {
	return strconv.Quote(s)
}

func fallback(term string) string {
	name := strings.Join(strings.Fields(term), "_")
	return iri(FallbackPrefix + url.PathEscape(name))
}
