// Package cli implements the nli command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/nli/pkg/nli"
	"github.com/cognicore/nli/pkg/nli/config"
	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/metrics"
	"github.com/cognicore/nli/pkg/nli/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	FactsPath  string
	Language   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nli CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nli",
		Short: "nli - natural-language questions to graph queries",
		Long:  "Analyse questions, resolve their bindings against a graph and build SPARQL-like queries.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.FactsPath, "facts", "", "YAML file of facts to link before running")
	cmd.PersistentFlags().StringVarP(&opts.Language, "lang", "l", "", "question language (defaults to the configured one)")

	cmd.AddCommand(NewAnalyseCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewChatCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is an engine together with the components it was built from.
type session struct {
	engine     *nli.Engine
	components *config.Components
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
}

func (s *session) Close() error {
	return s.components.Close()
}

func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	logger := newLogger(opts, cmd.ErrOrStderr())
	loader := config.Loader{ConfigPath: opts.ConfigPath, Logger: logger}
	comp, err := loader.Load(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.FactsPath != "" {
		if err := linkFile(ctx, comp, opts.FactsPath); err != nil {
			comp.Close()
			return nil, WrapExitError(ExitCommandError, "link facts", err)
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return &session{
		engine:     nli.FromComponents(comp, nil, m, logger),
		components: comp,
		metrics:    m,
		registry:   reg,
	}, nil
}

// factFile is the format accepted by --facts.
//
//	facts:
//	  - {subject: ex:BarackObama, predicate: rdfs:label, object: Barack Obama, literal: true}
//	  - {subject: ex:BarackObama, predicate: ex:spouse, object: ex:MichelleObama}
type factFile struct {
	Facts []struct {
		Subject   string `yaml:"subject"`
		Predicate string `yaml:"predicate"`
		Object    string `yaml:"object"`
		Literal   bool   `yaml:"literal"`
	} `yaml:"facts"`
}

func linkFile(ctx context.Context, comp *config.Components, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ff factFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	facts := make([]store.Fact, 0, len(ff.Facts))
	for _, f := range ff.Facts {
		facts = append(facts, newFact(comp.Namespaces, f.Subject, f.Predicate, f.Object, f.Literal))
	}
	return comp.Graph.Link(ctx, facts...)
}

// newFact expands prefixed names; literal objects are kept as written.
func newFact(ns entity.Namespaces, subject, predicate, object string, literal bool) store.Fact {
	f := store.Fact{Subject: ns.Expand(subject), Predicate: ns.Expand(predicate), Object: object, Literal: literal}
	if !literal {
		f.Object = ns.Expand(object)
	}
	return f
}
