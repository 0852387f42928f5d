package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factdb/internal/fact"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <type:hash>...",
		Short: "Load facts and their ancestors",
		Long: `Load the given facts together with all of their ancestors, in causal
order. References that are not stored are skipped.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runLoad(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	refs, err := parseReferences(args)
	if err != nil {
		return fail(formatter, err)
	}

	s, err := openStore(opts.Database)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	g, err := s.Load(cmd.Context(), refs)
	if err != nil {
		return fail(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}
	formatter.VerboseLog("Loaded %d fact(s)", g.Len())

	facts := g.Facts()
	if facts == nil {
		facts = []fact.Fact{}
	}
	var text strings.Builder
	for _, f := range facts {
		line, err := json.Marshal(f)
		if err != nil {
			return fail(formatter, err)
		}
		text.Write(line)
		text.WriteByte('\n')
	}
	return formatter.Success(facts, text.String())
}
