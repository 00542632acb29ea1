package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ducttape/internal/docstore"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	ID int64
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put [json]",
		Short: "Insert or update a document",
		Long: `Insert a JSON document, or overwrite the one at --id.

The payload is the JSON argument, or stdin when omitted. Prints the
document's id.

Example:
  ducttape put --db app.db '{"name":"frodo","level":3}'
  cat doc.json | ducttape put --db app.db --id 7`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.ID, "id", 0, "document id (omit to insert with a generated id)")

	return cmd
}

func runPut(opts *PutOptions, args []string, cmd *cobra.Command) error {
	var raw []byte
	if len(args) == 1 {
		raw = []byte(args[0])
	} else {
		var err error
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return WrapExitError(ExitCommandError, "read stdin", err)
		}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return WrapExitError(ExitCommandError, "payload must be a JSON object", err)
	}

	db, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.Upsert(cmd.Context(), docstore.Document{ID: opts.ID, Data: data})
	if err != nil {
		return WrapExitError(ExitFailure, "upsert", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{"id": id})
	}
	return out.Success(fmt.Sprintf("%d", id))
}
