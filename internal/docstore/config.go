package docstore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/ducttape/internal/docsql"
)

// DefaultTable is the document table name used when none is configured.
const DefaultTable = "documents"

// Config describes one logical document store: where it lives, which
// table holds its documents, and how connections are configured.
//
// Table and Indexes are the only strings ever interpolated into SQL, so
// both are validated at Open time and then fixed for the store's
// lifetime.
type Config struct {
	// Path is the SQLite location: a file path, or an in-memory DSN from
	// MemoryConfig.
	Path string

	// Table is the document table name. Defaults to DefaultTable.
	Table string

	// Indexes lists JSON fields to cover with expression indexes at
	// schema initialization. Indexes are a performance aid only; queries
	// work without them.
	Indexes []string

	// WAL enables write-ahead logging so independent readers proceed
	// during writes. Forced off for in-memory locations, where it is
	// meaningless and the engine may refuse the switch.
	WAL bool

	// AutoInit makes Open ensure the schema eagerly.
	AutoInit bool

	// SingleConn caps the store at one underlying connection, for
	// single-owner cooperative use: callers that never run two engine
	// calls concurrently share the one connection instead of each
	// holding their own.
	SingleConn bool
}

// DefaultConfig returns the standard file-backed configuration: WAL on,
// schema auto-initialized, default table name.
func DefaultConfig(path string) Config {
	return Config{
		Path:     path,
		Table:    DefaultTable,
		WAL:      true,
		AutoInit: true,
	}
}

// MemoryConfig returns an in-memory configuration. With shared set, the
// database uses a uniquely named shared-cache DSN so every connection in
// this store sees the same data while separate stores never collide; the
// store pins one keep-alive connection so the database survives pool
// churn. Without shared, the database is private to a single connection
// and the store is capped to that connection.
//
// WAL is never enabled for in-memory databases.
func MemoryConfig(shared bool) Config {
	cfg := Config{
		Table:    DefaultTable,
		AutoInit: true,
	}
	if shared {
		name := strings.ReplaceAll(uuid.NewString(), "-", "")
		cfg.Path = fmt.Sprintf("file:memdb_%s?mode=memory&cache=shared", name)
	} else {
		cfg.Path = ":memory:"
		cfg.SingleConn = true
	}
	return cfg
}

// inMemory reports whether path names an in-memory database rather than
// a file on disk.
func inMemory(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

// normalize fills defaults and enforces location invariants. Validation
// failures are ValidationErrors: the config never reaches the engine.
func (cfg Config) normalize() (Config, error) {
	if cfg.Path == "" {
		return cfg, validationf("database path cannot be empty")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !docsql.ValidIdent(cfg.Table) {
		return cfg, validationf("invalid table name %q", cfg.Table)
	}
	for _, field := range cfg.Indexes {
		if !docsql.ValidIdent(field) {
			return cfg, validationf("invalid index field %q", field)
		}
	}
	if inMemory(cfg.Path) {
		cfg.WAL = false
		if cfg.Path == ":memory:" {
			// Every new connection to ":memory:" is a separate empty
			// database, so the store must stay on one connection.
			cfg.SingleConn = true
		}
	}
	return cfg, nil
}
