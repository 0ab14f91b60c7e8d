// Package entity defines the graph entities the resolver maps bindings to:
// instances, properties, literal values and property paths, plus the routes
// produced by neighbour traversal.
package entity

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind tags the variant an Entity holds.
type Kind uint8

const (
	KindInstance Kind = iota + 1
	KindProperty
	KindValue
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindInstance:
		return "instance"
	case KindProperty:
		return "property"
	case KindValue:
		return "value"
	case KindPath:
		return "path"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Well-known IRIs used by the type relation.
const (
	RDFType        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSSubClassOf = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	RDFSLabel      = "http://www.w3.org/2000/01/rdf-schema#label"
)

// Entity is a tagged union over the closed set of graph entities. ID is the
// IRI of an instance or property and the lexical form of a value. Path is only
// set for KindPath.
type Entity struct {
	Kind    Kind
	ID      string
	Label   string
	Aliases []string
	Path    PropertyPath
}

// Instance creates an instance entity.
func Instance(id, label string, aliases ...string) Entity {
	return Entity{Kind: KindInstance, ID: id, Label: label, Aliases: aliases}
}

// Property creates a property entity.
func Property(id, label string, aliases ...string) Entity {
	return Entity{Kind: KindProperty, ID: id, Label: label, Aliases: aliases}
}

// Value creates a literal value entity.
func Value(lexical string) Entity {
	return Entity{Kind: KindValue, ID: lexical, Label: lexical}
}

// Path wraps a property path as an entity so it can be ranked and mapped.
func Path(p PropertyPath) Entity {
	return Entity{Kind: KindPath, ID: p.Key(), Path: p}
}

// IsLiteral reports whether the entity is a literal value and so cannot be
// traversed further.
func (e Entity) IsLiteral() bool { return e.Kind == KindValue }

// Key identifies the entity across kinds.
func (e Entity) Key() string { return e.Kind.String() + ":" + e.ID }

// RankableValues returns the strings a ranker compares against: the label,
// the aliases, and the humanised local name when no label is known. Paths
// contribute the concatenated values of their steps.
func (e Entity) RankableValues() []string {
	if e.Kind == KindPath {
		return []string{e.Path.Text()}
	}
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(e.Label)
	for _, a := range e.Aliases {
		add(a)
	}
	if len(out) == 0 {
		add(Humanise(LocalName(e.ID)))
	}
	return out
}

func (e Entity) String() string {
	if e.Kind == KindPath {
		return e.Path.String()
	}
	if e.Label != "" {
		return fmt.Sprintf("%s <%s>", e.Label, e.ID)
	}
	return "<" + e.ID + ">"
}

// LocalName returns the fragment or last path segment of an IRI.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/:"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// Humanise turns identifiers such as birthPlace or birth_place into
// "birth place".
func Humanise(name string) string {
	var sb strings.Builder
	var prev rune
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			sb.WriteByte(' ')
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev):
			sb.WriteByte(' ')
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(unicode.ToLower(r))
		}
		prev = r
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
