// Package model holds the data-model vocabulary shared by the analysis,
// resolution and query-building stages.
package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/rank"
)

// DataModelType is the closed set of semantic roles a binding can take.
type DataModelType uint8

const (
	Variable DataModelType = iota + 1
	Type
	Equals
	Stop
	Instance
	Class
	AtClass
	ComplexClass
	Property
)

var typeNames = map[DataModelType]string{
	Variable:     "VARIABLE",
	Type:         "TYPE",
	Equals:       "EQUALS",
	Stop:         "STOP",
	Instance:     "INSTANCE",
	Class:        "CLASS",
	AtClass:      "ATCLASS",
	ComplexClass: "COMPLEX_CLASS",
	Property:     "PROPERTY",
}

// AllTypes lists every DataModelType in declaration order.
func AllTypes() []DataModelType {
	return []DataModelType{Variable, Type, Equals, Stop, Instance, Class, AtClass, ComplexClass, Property}
}

func (t DataModelType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataModelType(%d)", uint8(t))
}

// ParseDataModelType parses the upper-case name of a type.
func ParseDataModelType(s string) (DataModelType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown data model type %q", internalerr.ErrInvalidConfig, s)
}

// UnmarshalText lets rule files name types directly.
func (t *DataModelType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataModelType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t DataModelType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DataModelBinding is a placeholder of the analysed question together with the
// original text it stands for. It is comparable and used as a map key.
type DataModelBinding struct {
	Type        DataModelType
	Term        string
	Placeholder string
}

func (b DataModelBinding) String() string {
	return fmt.Sprintf("%s(%q)", b.Placeholder, b.Term)
}

// Mappings is the resolution table of one session: every resolved binding and
// its ranked candidates, best first.
type Mappings map[DataModelBinding]rank.Scores

// Lookup finds the mapping for the binding with the given placeholder.
func (m Mappings) Lookup(placeholder string) (DataModelBinding, rank.Scores, bool) {
	for b, scores := range m {
		if b.Placeholder == placeholder {
			return b, scores, true
		}
	}
	return DataModelBinding{}, nil, false
}

// BindingPool maps placeholders of an analysed question to their bindings.
type BindingPool map[string]DataModelBinding

var (
	variableRe = regexp.MustCompile(`^\?VAR_\d+$`)
	typeRe     = regexp.MustCompile(`^TYPE_\d+$`)
	equalsRe   = regexp.MustCompile(`^EQUALS_\d+$`)
)

// IsVariable reports whether the placeholder names a query variable.
func IsVariable(placeholder string) bool { return variableRe.MatchString(placeholder) }

// IsTypeRelation reports whether the placeholder names the type relation.
func IsTypeRelation(placeholder string) bool { return typeRe.MatchString(placeholder) }

// Get returns the binding for a placeholder. Variables and TYPE slots are
// synthesised since they never come from the question text.
func (p BindingPool) Get(placeholder string) (DataModelBinding, bool) {
	if b, ok := p[placeholder]; ok {
		return b, true
	}
	switch {
	case IsVariable(placeholder):
		return DataModelBinding{Type: Variable, Term: placeholder, Placeholder: placeholder}, true
	case IsTypeRelation(placeholder):
		return DataModelBinding{Type: Type, Term: placeholder, Placeholder: placeholder}, true
	}
	return DataModelBinding{}, false
}

// Bind resolves every slot of a triple pattern against the pool.
func (p BindingPool) Bind(tp TriplePattern) (BoundTriple, error) {
	var slots [3]DataModelBinding
	for i, ph := range tp.Slots() {
		b, ok := p.Get(ph)
		if !ok {
			if equalsRe.MatchString(ph) {
				return BoundTriple{}, fmt.Errorf("%w: %s has no value", internalerr.ErrUnmappedPlaceholder, ph)
			}
			return BoundTriple{}, fmt.Errorf("%w: %s in %q", internalerr.ErrUnmappedPlaceholder, ph, tp.String())
		}
		slots[i] = b
	}
	return BoundTriple{Subject: slots[0], Predicate: slots[1], Object: slots[2]}, nil
}
