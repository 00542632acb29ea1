package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/roach88/ducttape/internal/docstore"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export all documents to a JSON file",
		Long: `Export every document, in id order, as a JSON array of
{"id": ..., "data": {...}} objects.

The file is written atomically: readers never see a partial export.

Example:
  ducttape export --db app.db dump.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runExport(opts *RootOptions, path string, cmd *cobra.Command) error {
	db, err := openStore(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	docs, err := db.All(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "read documents", err)
	}
	if docs == nil {
		docs = []docstore.Document{} // empty table exports as [], not null
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return WrapExitError(ExitFailure, "encode documents", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return WrapExitError(ExitFailure, "write export file", err)
	}

	slog.Debug("export complete", "documents", len(docs), "file", path)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{"exported": len(docs), "file": path})
	}
	return out.Success(fmt.Sprintf("exported %d documents to %s", len(docs), path))
}
