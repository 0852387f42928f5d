package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factdb/internal/spec"
)

// QueryOptions holds flags for the query and watch commands.
type QueryOptions struct {
	*RootOptions
	File   string
	Givens []string
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.File, "file", "f", "", "read the expression from a file")
	cmd.Flags().StringArrayVarP(&o.Givens, "given", "g", nil, "given fact as type:hash (repeat for each given, in order)")
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [expression]",
		Short: "Run a specification against the database",
		Long: `Compile a specification expression and run it from the given facts.
Each result is the specification's projection, printed as one JSON value
per line.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	expr, err := expressionSource(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, err)
	}
	sp, err := compileExpression(opts.Model, expr)
	if err != nil {
		return fail(formatter, err)
	}
	givens, err := parseReferences(opts.Givens)
	if err != nil {
		return fail(formatter, err)
	}

	s, err := openStore(opts.Database)
	if err != nil {
		return fail(formatter, err)
	}
	defer s.Close()

	products, err := s.Query(cmd.Context(), givens, sp)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Query returned %d result(s)", len(products))

	results := make([]any, len(products))
	var text strings.Builder
	for i, p := range products {
		results[i] = resultValue(p, sp)
		line, err := json.Marshal(results[i])
		if err != nil {
			return fail(formatter, err)
		}
		text.Write(line)
		text.WriteByte('\n')
	}
	return formatter.Success(results, text.String())
}

// resultValue materializes the projection of p for JSON output.
func resultValue(p spec.Product, sp *spec.Specification) any {
	switch el := p.Result(sp.Projection).(type) {
	case spec.ReferenceElement:
		return el.Reference
	case spec.ProductElement:
		return el.Product
	case spec.CollectionElement:
		return el.Products
	default:
		return nil
	}
}
