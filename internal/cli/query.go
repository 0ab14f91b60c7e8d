package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cognicore/nli/pkg/nli"
)

// ResultView is the printable form of a query result.
type ResultView struct {
	Question string              `json:"question"`
	NoAnswer bool                `json:"no_answer"`
	PlanID   string              `json:"plan_id,omitempty"`
	Query    string              `json:"query,omitempty"`
	Bullets  []string            `json:"bullets,omitempty"`
	Unmapped []string            `json:"unmapped,omitempty"`
	Answers  map[string][]string `json:"answers,omitempty"`
	CardID   string              `json:"card_id,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "query <question>",
		Short:         "Resolve a question and print the query built for it",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := ask(cmd.Context(), s, rootOpts, strings.Join(args, " "), out)
			if err != nil {
				return err
			}
			if res.NoAnswer {
				return NewExitError(ExitFailure, "no answer")
			}
			return nil
		},
	}
}

// ChatOptions holds flags for the chat command.
type ChatOptions struct {
	MetricsAddr string
}

// NewChatCommand creates the interactive chat command.
func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{}
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Answer questions read from stdin, one per line",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runChat(rootOpts *RootOptions, opts *ChatOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	s, err := openSession(ctx, rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintln(cmd.ErrOrStderr(), "metrics server:", err)
			}
		}()
		defer srv.Close()
	}

	if !out.IsJSON() {
		out.Text("Type your question (Ctrl+D to exit):")
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if !out.IsJSON() {
			fmt.Fprint(out.Writer, "> ")
		}
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if _, err := ask(ctx, s, rootOpts, question, out); err != nil {
			out.Text("Error: %v", err)
		}
	}
	return scanner.Err()
}

func ask(ctx context.Context, s *session, opts *RootOptions, question string, out *OutputFormatter) (*nli.Result, error) {
	res, err := s.engine.Query(ctx, nli.Request{Question: question, Language: opts.Language})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	view := viewResult(res)
	if out.IsJSON() {
		status := "ok"
		if res.NoAnswer {
			status = "no_answer"
		}
		return res, out.JSON(status, view)
	}

	if res.NoAnswer {
		out.Text("No answer.")
		for _, u := range view.Unmapped {
			out.Text("  unmapped: %s", u)
		}
		return res, nil
	}
	out.Text("plan %s", view.PlanID)
	for _, b := range view.Bullets {
		out.Text("  • %s", b)
	}
	for _, u := range view.Unmapped {
		out.Text("  unmapped: %s", u)
	}
	out.Text("%s", view.Query)
	return res, nil
}

func viewResult(res *nli.Result) ResultView {
	view := ResultView{
		Question: res.Question,
		NoAnswer: res.NoAnswer,
		PlanID:   res.Card.PlanID,
		Query:    res.Query,
		Bullets:  res.Card.Bullets,
		Unmapped: res.Card.Unmapped,
		CardID:   res.Card.ID,
	}
	if len(res.Answers) > 0 {
		view.Answers = make(map[string][]string, len(res.Answers))
		for v, ents := range res.Answers {
			for _, e := range ents {
				view.Answers[v] = append(view.Answers[v], e.String())
			}
		}
	}
	return view
}
