package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ducttape/internal/docstore"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	BatchSize int
	Workers   int
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk-import documents from a JSON array",
		Long: `Bulk-import documents from a file holding a JSON array.

Array elements are either wire-shape documents {"id": ..., "data": {...}}
(as written by export) or bare JSON objects, stored as id-less documents.
Documents are written in batches, each batch one transaction on its own
connection; batches run in parallel up to --workers.

Example:
  ducttape import --db app.db dump.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 100, "documents per transaction")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "parallel import workers")

	return cmd
}

// parseImportFile decodes the array, accepting both wire-shape documents
// and bare payload objects.
func parseImportFile(path string) ([]docstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("parse %s: want a JSON array: %w", path, err)
	}

	docs := make([]docstore.Document, 0, len(elems))
	for i, elem := range elems {
		var doc docstore.Document
		if err := json.Unmarshal(elem, &doc); err == nil && doc.Data != nil {
			docs = append(docs, doc)
			continue
		}

		var data map[string]any
		if err := json.Unmarshal(elem, &data); err != nil {
			return nil, fmt.Errorf("parse %s: element %d is not a JSON object: %w", path, i, err)
		}
		docs = append(docs, docstore.NewDocument(data))
	}
	return docs, nil
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	if opts.BatchSize < 1 {
		return NewExitError(ExitCommandError, "--batch-size must be at least 1")
	}
	if opts.Workers < 1 {
		return NewExitError(ExitCommandError, "--workers must be at least 1")
	}

	docs, err := parseImportFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load import file", err)
	}

	db, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer db.Close()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Workers)
	for start := 0; start < len(docs); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(docs))
		batch := docs[start:end]
		g.Go(func() error {
			return importBatch(ctx, db, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "import", err)
	}

	slog.Debug("import complete", "documents", len(docs), "file", path)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(map[string]any{"imported": len(docs)})
	}
	return out.Success(fmt.Sprintf("imported %d documents", len(docs)))
}

// importBatch writes one batch on its own connection, one transaction.
func importBatch(ctx context.Context, db *docstore.DB, batch []docstore.Document) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.BulkUpsert(ctx, batch)
	return err
}
