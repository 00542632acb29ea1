package cli

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ducttape/internal/docstore"
)

// FileConfig is the YAML config file shape:
//
//	path: app.db
//	table: documents
//	wal: true
//	indexes: [name, level]
type FileConfig struct {
	Path    string   `yaml:"path"`
	Table   string   `yaml:"table"`
	WAL     *bool    `yaml:"wal"`
	Indexes []string `yaml:"indexes"`
}

// loadFileConfig reads and parses the YAML config at path.
func loadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// storeConfig resolves the effective store configuration: defaults,
// overlaid by the config file (if any), overlaid by flags.
func storeConfig(opts *RootOptions) (docstore.Config, error) {
	cfg := docstore.Config{
		Table:    docstore.DefaultTable,
		WAL:      true,
		AutoInit: true,
	}

	if opts.ConfigPath != "" {
		fc, err := loadFileConfig(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
		if fc.Path != "" {
			cfg.Path = fc.Path
		}
		if fc.Table != "" {
			cfg.Table = fc.Table
		}
		if fc.WAL != nil {
			cfg.WAL = *fc.WAL
		}
		cfg.Indexes = fc.Indexes
	}

	if opts.DBPath != "" {
		cfg.Path = opts.DBPath
	}
	if opts.Table != "" {
		cfg.Table = opts.Table
	}

	if cfg.Path == "" {
		return cfg, NewExitError(ExitCommandError, "no database path: pass --db or set path in --config")
	}
	return cfg, nil
}

// openStore opens the document store for a command invocation.
func openStore(opts *RootOptions) (*docstore.DB, error) {
	cfg, err := storeConfig(opts)
	if err != nil {
		return nil, err
	}
	return openStoreConfig(cfg)
}

// openStoreConfig opens a store from an already resolved configuration.
func openStoreConfig(cfg docstore.Config) (*docstore.DB, error) {
	slog.Debug("opening store", "path", cfg.Path, "table", cfg.Table, "wal", cfg.WAL)
	db, err := docstore.Open(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return db, nil
}
