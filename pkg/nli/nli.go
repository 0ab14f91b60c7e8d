// Package nli translates natural-language questions into graph queries.
package nli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/nli/pkg/nli/analysis"
	"github.com/cognicore/nli/pkg/nli/cards"
	"github.com/cognicore/nli/pkg/nli/config"
	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/metrics"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/querybuild"
	"github.com/cognicore/nli/pkg/nli/resolve"
)

// Executor runs a built query and returns the entities bound to each
// projected variable.
type Executor interface {
	Select(ctx context.Context, query string) (map[string][]entity.Entity, error)
}

// Engine is the question answering facade
type Engine struct {
	registry   *analysis.Registry
	searcher   resolve.Searcher
	builder    *querybuild.Builder
	executor   Executor
	namespaces entity.Namespaces
	limits     resolve.Limits
	language   string
	cards      *cards.Builder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Options configures an Engine
type Options struct {
	Registry   *analysis.Registry
	Searcher   resolve.Searcher
	Builder    *querybuild.Builder
	Executor   Executor // optional; without it the first built query is returned
	Namespaces entity.Namespaces
	Limits     resolve.Limits
	Language   string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		registry:   opts.Registry,
		searcher:   opts.Searcher,
		builder:    opts.Builder,
		executor:   opts.Executor,
		namespaces: opts.Namespaces,
		limits:     opts.Limits,
		language:   opts.Language,
		cards:      cards.New(),
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	if e.builder == nil {
		e.builder = querybuild.New(querybuild.DefaultConfig())
	}
	if e.namespaces == nil {
		e.namespaces = entity.DefaultNamespaces()
	}
	if e.limits == (resolve.Limits{}) {
		e.limits = resolve.DefaultLimits()
	}
	if e.language == "" {
		e.language = "en"
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// FromComponents wires an Engine from loaded components.
func FromComponents(c *config.Components, exec Executor, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return New(Options{
		Registry:   c.Registry,
		Searcher:   c.Searcher,
		Builder:    c.Builder,
		Executor:   exec,
		Namespaces: c.Namespaces,
		Limits:     c.Config.Limits,
		Language:   c.Config.Language,
		Metrics:    m,
		Logger:     logger,
	})
}

// Request is a question to answer
type Request struct {
	Question string
	Language string // defaults to the engine language
}

// Result is the outcome of one question
type Result struct {
	Question string
	// NoAnswer is set when the question could not be mapped to a query or
	// no plan produced answers.
	NoAnswer bool

	Analysis *analysis.QuestionAnalysis
	Plan     model.QueryPlan
	Query    string
	Mappings model.Mappings
	Answers  map[string][]entity.Entity
	Card     cards.Card
}

// Analyse runs the analysis pipeline only.
func (e *Engine) Analyse(ctx context.Context, req Request) (*analysis.QuestionAnalysis, error) {
	start := time.Now()
	defer func() { e.metrics.Stage("analyse", time.Since(start)) }()

	a, err := e.registry.Analyzer(ctx, e.lang(req))
	if err != nil {
		return nil, err
	}
	return a.Analyse(ctx, req.Question)
}

// Query analyses a question, resolves its bindings and builds a query for
// each candidate plan in order. With an executor the first plan that yields
// answers wins. Unmappable questions produce a NoAnswer result, not an error.
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Question: req.Question}

	qa, err := e.Analyse(ctx, req)
	if err != nil {
		if internalerr.IsFatal(err) {
			e.logger.Info("question not mapped", "question", req.Question, "error", err)
			return e.noAnswer(res), nil
		}
		e.metrics.Question(metrics.OutcomeError)
		return nil, fmt.Errorf("analyse: %w", err)
	}
	res.Analysis = qa

	var lastErr error
	for i, plan := range qa.Plans() {
		pr, err := e.tryPlan(ctx, qa, plan)
		if err != nil {
			if ctx.Err() != nil {
				e.metrics.Question(metrics.OutcomeError)
				return nil, err
			}
			if internalerr.IsFatal(err) {
				e.logger.Debug("plan skipped", "plan", i, "error", err)
				lastErr = err
				continue
			}
			e.metrics.Question(metrics.OutcomeError)
			return nil, err
		}
		res.Plan, res.Query, res.Mappings, res.Answers = plan, pr.query, pr.mappings, pr.answers
		if e.executor == nil || hasAnswers(pr.answers) {
			res.Card = e.cards.Build(qa, res.Mappings, res.Query, res.Answers)
			e.metrics.Question(metrics.OutcomeAnswered)
			return res, nil
		}
		e.logger.Debug("plan returned no answers", "plan", i, "query", pr.query)
	}

	if lastErr != nil {
		e.logger.Info("no plan could be built", "question", req.Question, "error", lastErr)
	}
	return e.noAnswer(res), nil
}

type planResult struct {
	query    string
	mappings model.Mappings
	answers  map[string][]entity.Entity
}

// tryPlan resolves, builds and executes one plan with a fresh resolver.
func (e *Engine) tryPlan(ctx context.Context, qa *analysis.QuestionAnalysis, plan model.QueryPlan) (*planResult, error) {
	triples, err := qa.BoundTriples(plan)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r := resolve.New(e.searcher,
		resolve.WithNamespaces(e.namespaces),
		resolve.WithLimits(e.limits),
		resolve.WithLogger(e.logger),
		resolve.WithObserver(e.metrics),
	)
	for _, t := range triples {
		if err := r.ResolveTriple(ctx, t); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", t.Predicate.Term, err)
		}
	}
	e.metrics.Stage("resolve", time.Since(start))

	start = time.Now()
	query, err := e.builder.Build(qa.QueryType, plan, qa.Pool, r.Mappings())
	if err != nil {
		return nil, err
	}
	e.metrics.Stage("build", time.Since(start))

	out := &planResult{query: query, mappings: r.Mappings()}
	if e.executor == nil {
		return out, nil
	}

	start = time.Now()
	answers, err := e.executor.Select(ctx, query)
	e.metrics.Stage("execute", time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		// Execution failures only cost this plan.
		e.logger.Warn("query execution failed", "query", query, "error", err)
		return out, nil
	}
	out.answers = answers
	return out, nil
}

func (e *Engine) noAnswer(res *Result) *Result {
	res.NoAnswer = true
	if res.Analysis != nil {
		res.Card = e.cards.Build(res.Analysis, res.Mappings, res.Query, nil)
	}
	e.metrics.Question(metrics.OutcomeNoAnswer)
	return res
}

func (e *Engine) lang(req Request) string {
	if req.Language != "" {
		return req.Language
	}
	return e.language
}

func hasAnswers(answers map[string][]entity.Entity) bool {
	for _, v := range answers {
		if len(v) > 0 {
			return true
		}
	}
	return false
}
