package cli

import (
	"github.com/spf13/cobra"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	Literal bool
	Unlink  bool
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{}
	cmd := &cobra.Command{
		Use:   "link <subject> <predicate> <object>",
		Short: "Add one fact to the configured graph",
		Long: `Add (or with --unlink remove) one fact. Prefixed names such as rdfs:label
are expanded with the configured namespaces. Only a sqlite store keeps the
fact after the command exits.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(rootOpts, opts, args, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Literal, "literal", false, "object is a literal value")
	cmd.Flags().BoolVar(&opts.Unlink, "unlink", false, "remove the fact instead")
	return cmd
}

func runLink(rootOpts *RootOptions, opts *LinkOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	s, err := openSession(ctx, rootOpts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fact := newFact(s.components.Namespaces, args[0], args[1], args[2], opts.Literal)
	action, apply := "linked", s.components.Graph.Link
	if opts.Unlink {
		action, apply = "unlinked", s.components.Graph.Unlink
	}
	if err := apply(ctx, fact); err != nil {
		return WrapExitError(ExitCommandError, action, err)
	}
	s.components.Lookup.Purge()

	if out.IsJSON() {
		return out.JSON("ok", map[string]string{"action": action, "fact": fact.String()})
	}
	out.Text("%s %s", action, fact)
	return nil
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Summarise the configured graph",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			s, err := openSession(cmd.Context(), rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.components.Graph.Stats(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "stats", err)
			}
			if out.IsJSON() {
				return out.JSON("ok", st)
			}
			out.Text("facts:      %d", st.Facts)
			out.Text("nodes:      %d", st.Nodes)
			out.Text("classes:    %d", st.Classes)
			out.Text("properties: %d", st.Properties)
			return nil
		},
	}
}
