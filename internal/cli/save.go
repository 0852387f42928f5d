package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factdb/internal/client"
	"github.com/roach88/factdb/internal/fact"
)

// SaveResult is the JSON payload of save.
type SaveResult struct {
	Requested int      `json:"requested"`
	Saved     []string `json:"saved"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <facts.json>",
		Short: "Save facts to the database",
		Long: `Save a JSON array of facts ("-" for stdin). Each fact is
{"type", "fields", "predecessors"}; an optional "hash" must match.

The batch is saved in causal order. Predecessors may be earlier in the
batch or already stored; facts whose predecessors are missing are dropped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSave(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readSource(path, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, err)
	}
	facts, err := fact.DecodeAll(data)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Read %d fact(s) from %s", len(facts), path)

	s, err := openStore(opts.Database)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	c := client.New(s, client.WithLogger(opts.logger()))
	defer c.Close()

	saved, err := c.Fact(cmd.Context(), facts...)
	if err != nil {
		return fail(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error()})
	}

	result := SaveResult{Requested: len(facts), Saved: make([]string, len(saved))}
	var text strings.Builder
	fmt.Fprintf(&text, "Saved %d of %d fact(s)\n", len(saved), len(facts))
	for i, f := range saved {
		result.Saved[i] = f.Reference.String()
		fmt.Fprintf(&text, "  %s\n", f.Reference)
	}
	return formatter.Success(result, text.String())
}
