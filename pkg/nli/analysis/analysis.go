// Package analysis turns a question into a query type, a cleaned binding
// sequence and the query plans selected for it.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/nli/pkg/nli/annotate"
	"github.com/cognicore/nli/pkg/nli/binding"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/rules"
	"github.com/cognicore/nli/pkg/nli/stoplist"
)

// State is the last completed step of an analysis.
type State uint8

const (
	Tagged State = iota + 1
	Bound
	Cleaned
	PlanSelected
)

func (s State) String() string {
	switch s {
	case Tagged:
		return "tagged"
	case Bound:
		return "bound"
	case Cleaned:
		return "cleaned"
	case PlanSelected:
		return "plan-selected"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// QuestionAnalysis is the result of analysing one question.
type QuestionAnalysis struct {
	Question  string
	Language  string
	QueryType model.QueryType
	State     State

	Words    []binding.Word
	Bound    []binding.Binding[model.DataModelType]
	Bindings []binding.Binding[model.DataModelType] // cleaned
	PlanID   string
	Planner  model.QueryPlannerPattern
	Pool     model.BindingPool
}

// Plans returns the candidate plans in the order they should be tried.
func (qa *QuestionAnalysis) Plans() []model.QueryPlan {
	return qa.Planner.Plans
}

// BoundTriples binds every triple of plan against the analysis pool.
func (qa *QuestionAnalysis) BoundTriples(plan model.QueryPlan) ([]model.BoundTriple, error) {
	out := make([]model.BoundTriple, 0, len(plan))
	for _, tp := range plan {
		bt, err := qa.Pool.Bind(tp)
		if err != nil {
			return nil, &internalerr.DispatchError{Err: err, Language: qa.Language, Input: qa.Question}
		}
		out = append(out, bt)
	}
	return out, nil
}

// Analyzer runs the analysis pipeline for one language.
type Analyzer struct {
	rules     *rules.RuleSet
	annotator annotate.Annotator
	logger    *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an analyzer for the language of rs.
func New(rs *rules.RuleSet, annotator annotate.Annotator, opts ...Option) *Analyzer {
	a := &Analyzer{rules: rs, annotator: annotator, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Language returns the analyzer's language.
func (a *Analyzer) Language() string { return a.rules.Language }

// Rules returns the rule set in use.
func (a *Analyzer) Rules() *rules.RuleSet { return a.rules }

// Analyse runs query-type detection, tagging, binding, cleaning and plan
// selection. A question with no query type or no plan is a fatal
// *internalerr.DispatchError.
func (a *Analyzer) Analyse(ctx context.Context, question string) (*QuestionAnalysis, error) {
	lang := a.rules.Language
	qa := &QuestionAnalysis{Question: question, Language: lang}

	qt, ok := a.rules.QueryType(question)
	if !ok {
		return nil, internalerr.Dispatch(internalerr.ErrUnmappedQueryType, lang, question)
	}
	qa.QueryType = qt

	words, err := a.annotator.Run(ctx, lang, question)
	if err != nil {
		return nil, fmt.Errorf("annotate %q: %w", question, err)
	}
	qa.Words = words
	qa.State = Tagged

	qa.Bound = binding.Extract(words, a.rules.Bindings)
	qa.State = Bound

	qa.Bindings = stoplist.Clean(binding.ExtractBindings(qa.Bound, a.rules.Stops))
	qa.State = Cleaned

	qa.PlanID = binding.Render(qa.Bindings)
	planner, ok := a.rules.Plan(qa.PlanID)
	if !ok {
		a.logger.Debug("no plan for question",
			"question", question, "plan_id", qa.PlanID, "bound", binding.Render(qa.Bound))
		return nil, internalerr.Dispatch(internalerr.ErrUnmappedPlan, lang, qa.PlanID)
	}
	qa.Planner = planner
	qa.Pool = pool(qa.Bindings)
	qa.State = PlanSelected

	a.logger.Debug("question analysed",
		"question", question, "query_type", qt.String(), "plan_id", qa.PlanID)
	return qa, nil
}

func pool(bindings []binding.Binding[model.DataModelType]) model.BindingPool {
	p := make(model.BindingPool, len(bindings))
	for _, b := range bindings {
		obj, ok := b.Object()
		if !ok {
			continue
		}
		p[b.Placeholder()] = model.DataModelBinding{Type: obj, Term: b.Term(), Placeholder: b.Placeholder()}
	}
	return p
}
