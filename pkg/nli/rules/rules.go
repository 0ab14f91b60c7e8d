// Package rules loads per-language rule sets: the POS alphabet, binding
// patterns, stop terms, query-type patterns and query plans.
package rules

import (
	"embed"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/nli/pkg/nli/binding"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/stoplist"
)

//go:embed lang/*.yaml
var builtin embed.FS

// File is the on-disk form of a rule set.
type File struct {
	Language   string          `yaml:"language"`
	Tags       []string        `yaml:"tags"`
	QueryTypes []QueryTypeSpec `yaml:"query_types"`
	Bindings   []BindingSpec   `yaml:"bindings"`
	Stop       StopSpec        `yaml:"stop"`
	Plans      []PlanSpec      `yaml:"plans"`
}

// QueryTypeSpec maps a question regex to a query type.
type QueryTypeSpec struct {
	Type    model.QueryType `yaml:"type"`
	Pattern string          `yaml:"pattern"`
}

// BindingSpec is one binding pattern.
type BindingSpec struct {
	Target  model.DataModelType `yaml:"target"`
	Pattern string              `yaml:"pattern"`
}

// StopSpec configures the cleaning pass.
type StopSpec struct {
	Punctuation *bool    `yaml:"punctuation"`
	Terms       []string `yaml:"terms"`
	Patterns    []string `yaml:"patterns"`
}

// PlanSpec lists the plans for one plan id. Each plan is a list of triples.
type PlanSpec struct {
	ID    string     `yaml:"id"`
	Plans [][]string `yaml:"plans"`
}

type queryTypeRule struct {
	kind model.QueryType
	re   *regexp.Regexp
}

// RuleSet is a compiled, read-only rule set.
type RuleSet struct {
	Language string
	Tags     binding.TagSet
	Bindings []binding.Pattern[model.DataModelType]
	Stops    []binding.Pattern[model.DataModelType]
	Stoplist *stoplist.Manager

	queryTypes []queryTypeRule
	plans      map[string]model.QueryPlannerPattern
	planOrder  []string
}

// Neutral lists the placeholder stems that may appear in either kind of
// pattern without making it lexical.
func Neutral() []string {
	stems := []string{"VAR", "TMP"}
	for _, t := range model.AllTypes() {
		stems = append(stems, strings.Split(t.String(), "_")...)
	}
	return stems
}

// Load reads and compiles a rule file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse compiles YAML rule data. Any malformed pattern or plan is a
// configuration error.
func Parse(data []byte) (*RuleSet, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse rules: %v", internalerr.ErrInvalidConfig, err)
	}
	return Compile(f)
}

// Compile builds a RuleSet from its file form.
func Compile(f File) (*RuleSet, error) {
	if strings.TrimSpace(f.Language) == "" {
		return nil, fmt.Errorf("%w: rules without language", internalerr.ErrInvalidConfig)
	}
	rs := &RuleSet{
		Language: f.Language,
		Tags:     binding.NewTagSet(f.Tags...),
		plans:    make(map[string]model.QueryPlannerPattern, len(f.Plans)),
	}
	neutral := Neutral()

	for _, qt := range f.QueryTypes {
		re, err := regexp.Compile(qt.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: query type %s pattern %q: %v", internalerr.ErrInvalidConfig, qt.Type, qt.Pattern, err)
		}
		if qt.Type == 0 {
			return nil, fmt.Errorf("%w: query type pattern %q has no type", internalerr.ErrInvalidConfig, qt.Pattern)
		}
		rs.queryTypes = append(rs.queryTypes, queryTypeRule{kind: qt.Type, re: re})
	}

	for _, b := range f.Bindings {
		if b.Target == 0 {
			return nil, fmt.Errorf("%w: binding pattern %q has no target", internalerr.ErrInvalidConfig, b.Pattern)
		}
		p, err := binding.NewPattern(b.Pattern, b.Target, rs.Tags, neutral...)
		if err != nil {
			return nil, err
		}
		rs.Bindings = append(rs.Bindings, p)
	}

	rs.Stoplist = stoplist.NewManager(f.Stop.Terms)
	if f.Stop.Punctuation != nil {
		rs.Stoplist.SetPunctuation(*f.Stop.Punctuation)
	}
	for _, p := range f.Stop.Patterns {
		rs.Stoplist.AddPattern(p)
	}
	stops, err := rs.Stoplist.Patterns(rs.Tags, neutral...)
	if err != nil {
		return nil, err
	}
	rs.Stops = stops

	for _, ps := range f.Plans {
		id := strings.Join(strings.Fields(ps.ID), " ")
		if id == "" {
			return nil, fmt.Errorf("%w: plan without id", internalerr.ErrInvalidConfig)
		}
		if _, dup := rs.plans[id]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %q", internalerr.ErrInvalidConfig, id)
		}
		pattern := model.QueryPlannerPattern{PlanID: id}
		for _, triples := range ps.Plans {
			plan, err := model.ParseQueryPlan(triples)
			if err != nil {
				return nil, fmt.Errorf("plan %q: %w", id, err)
			}
			if len(plan) == 0 {
				return nil, fmt.Errorf("%w: plan %q has an empty plan", internalerr.ErrInvalidConfig, id)
			}
			pattern.Plans = append(pattern.Plans, plan)
		}
		rs.plans[id] = pattern
		rs.planOrder = append(rs.planOrder, id)
	}

	return rs, nil
}

// QueryType returns the type of the first query-type pattern matching the raw
// question.
func (rs *RuleSet) QueryType(question string) (model.QueryType, bool) {
	for _, qt := range rs.queryTypes {
		if qt.re.MatchString(question) {
			return qt.kind, true
		}
	}
	return 0, false
}

// Plan looks up the planner pattern whose id equals planID exactly.
func (rs *RuleSet) Plan(planID string) (model.QueryPlannerPattern, bool) {
	p, ok := rs.plans[planID]
	return p, ok
}

// PlanIDs lists plan ids in file order.
func (rs *RuleSet) PlanIDs() []string {
	out := make([]string, len(rs.planOrder))
	copy(out, rs.planOrder)
	return out
}

// Default loads the built-in rule set of a language.
func Default(language string) (*RuleSet, error) {
	data, err := builtin.ReadFile(path.Join("lang", language+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", internalerr.ErrUnknownLanguage, language)
	}
	return Parse(data)
}

// Languages lists the built-in languages.
func Languages() []string {
	entries, err := builtin.ReadDir("lang")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
