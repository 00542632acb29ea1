package docstore

import (
	"context"
	"fmt"
)

// EnsureSchema creates the document table and its expression indexes if
// absent.
//
// Idempotent and race-safe: everything uses IF NOT EXISTS, so two
// contexts initializing the same store concurrently both succeed. The
// table and index field names were validated at Open, which is the only
// reason interpolating them here is sound.
func (c *Conn) EnsureSchema(ctx context.Context) error {
	table := c.db.cfg.Table

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data JSON NOT NULL
		)`, table)
	if _, err := c.sc.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	for _, field := range c.db.cfg.Indexes {
		createIndex := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_%s
			ON %s (json_extract(data, '$.%s'))`, table, field, table, field)
		if _, err := c.sc.ExecContext(ctx, createIndex); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", table, field, err)
		}
	}
	return nil
}
