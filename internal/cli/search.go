package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ducttape/internal/docsql"
	"github.com/roach88/ducttape/internal/docstore"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Where []string
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search documents by JSON field predicates",
		Long: `Search documents by one or more field predicates, ANDed together.

Each --where is "field,op,value" with op one of = != < > <= >=.
Values parse as JSON when possible (numbers, booleans), else as strings.

Example:
  ducttape search --db app.db --where level,>,5 --where class,=,rogue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, `predicate "field,op,value" (repeatable)`)

	return cmd
}

// parsePredicate turns a "field,op,value" flag into a predicate. The
// operator is validated later by docsql; this only splits and types the
// value.
func parsePredicate(flag string) (docsql.Predicate, error) {
	parts := strings.SplitN(flag, ",", 3)
	if len(parts) != 3 {
		return docsql.Predicate{}, fmt.Errorf("predicate %q: want \"field,op,value\"", flag)
	}
	return docsql.Predicate{
		Field: parts[0],
		Op:    docsql.Op(parts[1]),
		Value: parseValue(parts[2]),
	}, nil
}

// parseValue types a flag value: JSON scalars (numbers, booleans, null)
// keep their type, everything else stays a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case float64, bool, nil:
			return v
		}
	}
	return s
}

func runSearch(opts *SearchOptions, cmd *cobra.Command) error {
	if len(opts.Where) == 0 {
		return NewExitError(ExitCommandError, "search requires at least one --where predicate")
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

	docs, err := db.Search(cmd.Context(), preds...)
	if err != nil {
		return WrapExitError(ExitFailure, "search", err)
	}
	if docs == nil {
		docs = []docstore.Document{} // no matches renders as [], not null
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(docs)
}
