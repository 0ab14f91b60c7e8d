package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/nli/pkg/nli"
	"github.com/cognicore/nli/pkg/nli/analysis"
	"github.com/cognicore/nli/pkg/nli/binding"
	"github.com/cognicore/nli/pkg/nli/internalerr"
)

// AnalysisView is the printable form of a question analysis.
type AnalysisView struct {
	Question  string        `json:"question"`
	Language  string        `json:"language"`
	QueryType string        `json:"query_type"`
	Tagged    string        `json:"tagged"`
	Bound     string        `json:"bound"`
	PlanID    string        `json:"plan_id"`
	Bindings  []BindingView `json:"bindings"`
	Plans     [][]string    `json:"plans"`
}

// BindingView is one entry of the binding pool.
type BindingView struct {
	Placeholder string `json:"placeholder"`
	Type        string `json:"type"`
	Term        string `json:"term"`
}

// NewAnalyseCommand creates the analyse command.
func NewAnalyseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "analyse <question>",
		Aliases:       []string{"analyze"},
		Short:         "Show the query type, bindings and plans of a question",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyse(rootOpts, strings.Join(args, " "), cmd)
		},
	}
}

func runAnalyse(opts *RootOptions, question string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	s, err := openSession(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	qa, err := s.engine.Analyse(cmd.Context(), nli.Request{Question: question, Language: opts.Language})
	if err != nil {
		if internalerr.IsFatal(err) {
			if out.IsJSON() {
				_ = out.JSON("no_answer", map[string]string{"question": question, "reason": err.Error()})
			} else {
				out.Text("not mapped: %v", err)
			}
			return NewExitError(ExitFailure, "question not mapped")
		}
		return WrapExitError(ExitCommandError, "analyse", err)
	}

	view := viewAnalysis(qa)
	if out.IsJSON() {
		return out.JSON("ok", view)
	}
	out.Text("question:   %s", view.Question)
	out.Text("query type: %s", view.QueryType)
	out.Text("tagged:     %s", view.Tagged)
	out.Text("bound:      %s", view.Bound)
	out.Text("plan id:    %s", view.PlanID)
	for _, b := range view.Bindings {
		out.Text("  %-12s %-8s %q", b.Placeholder, b.Type, b.Term)
	}
	for i, p := range view.Plans {
		out.Text("plan %d: %s", i+1, strings.Join(p, " . "))
	}
	return nil
}

func viewAnalysis(qa *analysis.QuestionAnalysis) AnalysisView {
	view := AnalysisView{
		Question:  qa.Question,
		Language:  qa.Language,
		QueryType: qa.QueryType.String(),
		Bound:     binding.Render(qa.Bound),
		PlanID:    qa.PlanID,
	}
	tagged := make([]string, len(qa.Words))
	for i, w := range qa.Words {
		tagged[i] = w.Text + "/" + w.POS
	}
	view.Tagged = strings.Join(tagged, " ")
	for _, b := range qa.Bindings {
		if !b.IsBound() {
			continue
		}
		obj, _ := b.Object()
		view.Bindings = append(view.Bindings, BindingView{Placeholder: b.Placeholder(), Type: obj.String(), Term: b.Term()})
	}
	for _, plan := range qa.Plans() {
		triples := make([]string, len(plan))
		for i, tp := range plan {
			triples[i] = tp.String()
		}
		view.Plans = append(view.Plans, triples)
	}
	return view
}
