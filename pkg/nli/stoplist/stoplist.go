// Package stoplist manages the stop terms of a language and turns them into
// the STOP patterns of the cleaning pass.
package stoplist

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/nli/pkg/nli/binding"
	"github.com/cognicore/nli/pkg/nli/model"
)

// PunctuationPattern binds any token made only of punctuation.
const PunctuationPattern = `(?:.*? )?([[:punct:]]+)(?: .*)?`

// Manager holds the stop terms and extra stop patterns of one language.
type Manager struct {
	stops       map[string]struct{}
	patterns    []string
	punctuation bool
}

// NewManager creates a new stoplist manager. Terms are case-insensitive.
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]struct{}, len(initialStops)), punctuation: true}
	for _, s := range initialStops {
		m.Add(s)
	}
	return m
}

// IsStop checks if a token is a stop term
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// Add adds a term to the stoplist
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token != "" {
		m.stops[token] = struct{}{}
	}
}

// Remove removes a term from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(strings.TrimSpace(token)))
}

// AddPattern adds a raw stop pattern, matched like any binding pattern.
func (m *Manager) AddPattern(pattern string) {
	m.patterns = append(m.patterns, pattern)
}

// SetPunctuation toggles the synthetic punctuation pattern.
func (m *Manager) SetPunctuation(on bool) { m.punctuation = on }

// All returns all stop terms, sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Patterns builds the STOP patterns: one alternation over the stop terms,
// the configured extra patterns, then punctuation. Term matches are
// whole-token and case-insensitive.
func (m *Manager) Patterns(tags binding.TagSet, neutral ...string) ([]binding.Pattern[model.DataModelType], error) {
	var texts []string
	if terms := m.All(); len(terms) > 0 {
		quoted := make([]string, len(terms))
		for i, t := range terms {
			quoted[i] = regexp.QuoteMeta(strings.Join(strings.Fields(t), " "))
		}
		texts = append(texts, `(?:.*? )?((?i:`+strings.Join(quoted, "|")+`))(?: .*)?`)
	}
	texts = append(texts, m.patterns...)
	if m.punctuation {
		texts = append(texts, PunctuationPattern)
	}

	out := make([]binding.Pattern[model.DataModelType], 0, len(texts))
	for _, text := range texts {
		p, err := binding.NewPattern(text, model.Stop, tags, neutral...)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Clean drops every binding bound to STOP.
func Clean(bindings []binding.Binding[model.DataModelType]) []binding.Binding[model.DataModelType] {
	out := make([]binding.Binding[model.DataModelType], 0, len(bindings))
	for _, b := range bindings {
		if obj, ok := b.Object(); ok && obj == model.Stop {
			continue
		}
		out = append(out, b)
	}
	return out
}
