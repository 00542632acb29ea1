package cli

import (
	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Indexes []string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the document table and its JSON indexes",
		Long: `Create the document table and its JSON expression indexes if absent.

Safe to run repeatedly. Index fields from --index are merged with any
configured in the YAML config file.

Example:
  ducttape init --db app.db --index name --index level`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Indexes, "index", nil, "JSON field to index (repeatable)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	cfg, err := storeConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	cfg.Indexes = append(cfg.Indexes, opts.Indexes...)
	cfg.AutoInit = true

	db, err := openStoreConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(map[string]any{"table": db.Table(), "indexes": cfg.Indexes})
}
