package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a document by id",
		Long: `Fetch a document by id and print it as {"id": ..., "data": {...}}.

Exits with status 1 when no document has that id.

Example:
  ducttape get --db app.db 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runGet(opts *RootOptions, arg string, cmd *cobra.Command) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "id must be an integer", err)
	}

	db, err := openStore(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, ok, err := db.Find(cmd.Context(), id)
	if err != nil {
		return WrapExitError(ExitFailure, "find", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if !ok {
		out.Failure(fmt.Sprintf("no document with id %d", id))
		return NewExitError(ExitFailure, fmt.Sprintf("no document with id %d", id))
	}
	return out.Success(doc)
}
