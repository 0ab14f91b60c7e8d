// Package lexicon holds synonym groups that widen the rank target of a
// binding term, so "wife" also ranks well against a property labelled
// "spouse".
package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/nli/pkg/nli/rank"
)

// Lexicon maps every known term to the synonym group it belongs to. Terms are
// compared after rank.Normalise.
type Lexicon struct {
	groups map[string][]string // canonical -> canonical followed by its variants
	member map[string]string   // any term of a group -> canonical
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups: make(map[string][]string),
		member: make(map[string]string),
	}
}

// File is the YAML layout read by LoadFromYAML:
//
//	synonyms:
//	  - canonical: spouse
//	    variants: [wife, husband, married to]
//	  - canonical: birth place
//	    variants: [born, birthplace, place of birth]
type File struct {
	Synonyms []Group `yaml:"synonyms"`
}

// Group is one synonym group of a File.
type Group struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// LoadFromYAML reads a lexicon file.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes the LoadFromYAML format.
func Parse(data []byte) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	lex := New()
	for _, g := range f.Synonyms {
		lex.AddSynonymGroup(g.Canonical, g.Variants)
	}
	return lex, nil
}

// AddSynonymGroup adds or replaces the group of canonical. Variants of a
// replaced group that are not repeated are forgotten.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = rank.Normalise(canonical)
	for _, old := range l.groups[canonical] {
		if l.member[old] == canonical {
			delete(l.member, old)
		}
	}

	group := []string{canonical}
	l.member[canonical] = canonical
	for _, v := range variants {
		v = rank.Normalise(v)
		if v == "" || l.member[v] == canonical {
			continue
		}
		group = append(group, v)
		l.member[v] = canonical
	}
	l.groups[canonical] = group
}

// Normalize returns the canonical form of term, or the normalised term when
// it belongs to no group.
func (l *Lexicon) Normalize(term string) string {
	key := rank.Normalise(term)
	if canonical, ok := l.member[key]; ok {
		return canonical
	}
	return key
}

// Variants returns the group of term with the canonical form first, or the
// normalised term alone.
func (l *Lexicon) Variants(term string) []string {
	key := rank.Normalise(term)
	group, ok := l.groups[l.member[key]]
	if !ok {
		return []string{key}
	}
	return append([]string(nil), group...)
}

// HasSynonyms reports whether term belongs to a group.
func (l *Lexicon) HasSynonyms(term string) bool {
	_, ok := l.member[rank.Normalise(term)]
	return ok
}

// Target builds the rank target for a binding term: the term as written,
// then the other members of its group. A nil lexicon yields the term alone.
func (l *Lexicon) Target(term string) rank.Text {
	out := rank.Text{term}
	if l == nil {
		return out
	}
	key := rank.Normalise(term)
	for _, v := range l.Variants(term) {
		if v != key {
			out = append(out, v)
		}
	}
	return out
}

// Stats counts groups and the terms they hold.
func (l *Lexicon) Stats() Stats {
	return Stats{SynonymGroups: len(l.groups), TotalVariants: len(l.member)}
}

// Stats summarises a lexicon.
type Stats struct {
	SynonymGroups int
	TotalVariants int
}
