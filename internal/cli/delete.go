package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document by id",
		Long: `Delete the document at the given id.

Deleting an absent id succeeds; there is nothing to undo.

Example:
  ducttape delete --db app.db 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, arg string, cmd *cobra.Command) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "id must be an integer", err)
	}

	db, err := openStore(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Delete(cmd.Context(), id); err != nil {
		return WrapExitError(ExitFailure, "delete", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{"id": id, "deleted": true})
	}
	return out.Success(fmt.Sprintf("deleted %d", id))
}
