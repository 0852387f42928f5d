package cli

import (
	"github.com/spf13/cobra"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	File string
}

// DescribeResult is the JSON payload of describe.
type DescribeResult struct {
	Given       []string `json:"given"`
	Types       []string `json:"types"`
	Description string   `json:"description"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe [expression]",
		Short: "Compile a specification and print its description",
		Long: `Compile a specification expression against the model and print the
compiled specification in the description format.

The expression is given as an argument or read with --file ("-" for stdin).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the expression from a file")

	return cmd
}

func runDescribe(opts *DescribeOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	expr, err := expressionSource(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, err)
	}
	sp, err := compileExpression(opts.Model, expr)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Compiled specification with %d given(s) and %d match(es)", len(sp.Given), len(sp.Matches))

	given := make([]string, len(sp.Given))
	for i, g := range sp.Given {
		given[i] = g.Name + ": " + g.Type
	}
	desc := sp.String()
	return formatter.Success(DescribeResult{Given: given, Types: sp.Types(), Description: desc}, desc)
}
