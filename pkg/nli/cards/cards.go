// Package cards renders explainable summaries of a resolved question.
package cards

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/nli/pkg/nli/analysis"
	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/model"
	"github.com/cognicore/nli/pkg/nli/rank"
)

// Builder constructs explainable result cards
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new card builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Card is a structured explanation of how a question was answered
type Card struct {
	ID        string
	Question  string
	QueryType string
	PlanID    string
	Query     string
	Bullets   []string
	Unmapped  []string
	// ScoreBreakdown holds the best candidate score per placeholder
	ScoreBreakdown map[string]float64
	Explain        Explain
}

// Explain exposes the intermediate steps of the analysis
type Explain struct {
	Words    []string
	Bindings []string
	Answers  []string
}

// Build creates a card from an analysis, the mappings it resolved to, the
// rendered query and any answers returned for it.
func (b *Builder) Build(qa *analysis.QuestionAnalysis, mappings model.Mappings, query string, answers map[string][]entity.Entity) Card {
	card := Card{
		ID:             b.newID(),
		Question:       qa.Question,
		QueryType:      qa.QueryType.String(),
		PlanID:         qa.PlanID,
		Query:          query,
		ScoreBreakdown: make(map[string]float64),
	}

	for _, w := range qa.Words {
		card.Explain.Words = append(card.Explain.Words, w.Text+"/"+w.POS)
	}
	for _, bnd := range qa.Bindings {
		if bnd.IsBound() {
			card.Explain.Bindings = append(card.Explain.Bindings, fmt.Sprintf("%s=%q", bnd.Placeholder(), bnd.Term()))
		}
	}

	placeholders := make([]string, 0, len(qa.Pool))
	for ph := range qa.Pool {
		placeholders = append(placeholders, ph)
	}
	sort.Strings(placeholders)

	for _, ph := range placeholders {
		dmb := qa.Pool[ph]
		scores := mappings[dmb]
		if len(scores) == 0 {
			card.Unmapped = append(card.Unmapped, fmt.Sprintf("%s %q", ph, dmb.Term))
			continue
		}
		card.ScoreBreakdown[ph] = scores[0].Value
		for _, s := range scores {
			card.Bullets = append(card.Bullets, fmt.Sprintf("%s %q -> %s (%.2f)", ph, dmb.Term, describe(s.Entry), s.Value))
		}
	}

	vars := make([]string, 0, len(answers))
	for v := range answers {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, v := range vars {
		for _, e := range answers[v] {
			card.Explain.Answers = append(card.Explain.Answers, v+" = "+e.String())
		}
	}

	return card
}

func (b *Builder) newID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Now(), b.entropy).String()
}

func describe(r rank.Rankable) string {
	if e, ok := r.(entity.Entity); ok {
		return e.String()
	}
	return fmt.Sprint(r.RankableValues())
}
