package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ducttape/internal/docsql"
)

// AggOptions holds flags for the agg command.
type AggOptions struct {
	*RootOptions
	Where    []string
	RawWhere string
}

// NewAggCommand creates the agg command.
func NewAggCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AggOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "agg <op> <field>",
		Short: "Aggregate a JSON field (COUNT, SUM, AVG, MIN, MAX)",
		Long: `Aggregate a JSON field across documents.

Constraints come from --where predicates, or from --raw-where, a WHERE
clause passed to the engine verbatim. The two are mutually exclusive,
and --raw-where must never carry untrusted input.

Example:
  ducttape agg --db app.db SUM hp
  ducttape agg --db app.db COUNT level --where level,>,5`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgg(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, `predicate "field,op,value" (repeatable)`)
	cmd.Flags().StringVar(&opts.RawWhere, "raw-where", "", "raw SQL WHERE clause (trusted input only)")

	return cmd
}

func runAgg(opts *AggOptions, op, field string, cmd *cobra.Command) error {
	if opts.RawWhere != "" && len(opts.Where) > 0 {
		return NewExitError(ExitCommandError, "--where and --raw-where are mutually exclusive")
	}

	preds := make([]docsql.Predicate, 0, len(opts.Where))
	for _, flag := range opts.Where {
		pred, err := parsePredicate(flag)
		if err != nil {
			return WrapExitError(ExitCommandError, "parse predicate", err)
		}
		preds = append(preds, pred)
	}

	db, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	var result any
	if opts.RawWhere != "" {
		result, err = db.AggregateRaw(cmd.Context(), docsql.AggregateOp(op), field, opts.RawWhere)
	} else {
		result, err = db.Aggregate(cmd.Context(), docsql.AggregateOp(op), field, preds...)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "aggregate", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{"op": op, "field": field, "result": result})
	}
	if result == nil {
		return out.Success("no result")
	}
	return out.Success(fmt.Sprintf("%v", result))
}
