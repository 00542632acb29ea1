package docstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/ducttape/internal/docsql"
)

// DB is a handle to one document table: a location plus a table name.
//
// DB owns the connection pool but no connection itself. Callers acquire a
// Conn per execution context (one goroutine, or one cooperative owner)
// and release it on teardown; DB methods that take a context acquire and
// release internally, one connection per call.
//
// A single DB is safe to share across goroutines.
type DB struct {
	cfg   Config
	sqlDB *sql.DB

	// keepAlive pins one connection for shared in-memory databases,
	// which are destroyed once their last connection closes.
	keepAlive *sql.Conn
}

// Open opens (creating if absent) the document store described by cfg.
//
// A connection failure aborts construction. With cfg.AutoInit the schema
// is ensured before Open returns.
func Open(cfg Config) (*DB, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, &ConnectionError{Path: cfg.Path, Err: err}
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, &ConnectionError{Path: cfg.Path, Err: err}
	}

	if cfg.SingleConn {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	db := &DB{cfg: cfg, sqlDB: sqlDB}

	ctx := context.Background()
	if inMemory(cfg.Path) && !cfg.SingleConn {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			sqlDB.Close()
			return nil, &ConnectionError{Path: cfg.Path, Err: err}
		}
		db.keepAlive = conn
	}

	if cfg.AutoInit {
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// OpenFile opens a file-backed store with the default configuration
// (WAL on, schema auto-initialized) and the given table name.
func OpenFile(path, table string) (*DB, error) {
	cfg := DefaultConfig(path)
	if table != "" {
		cfg.Table = table
	}
	return Open(cfg)
}

// OpenMemory opens an in-memory store. See MemoryConfig for the shared
// flag's meaning.
func OpenMemory(table string, shared bool) (*DB, error) {
	cfg := MemoryConfig(shared)
	if table != "" {
		cfg.Table = table
	}
	return Open(cfg)
}

// Table returns the document table name this store operates on.
func (db *DB) Table() string { return db.cfg.Table }

// Path returns the database location this store was opened with.
func (db *DB) Path() string { return db.cfg.Path }

// Close releases the keep-alive connection (if any) and the pool.
// Acquiring from a closed DB fails with a ConnectionError.
func (db *DB) Close() error {
	if db.keepAlive != nil {
		db.keepAlive.Close()
		db.keepAlive = nil
	}
	if err := db.sqlDB.Close(); err != nil {
		return fmt.Errorf("close %s: %w", db.cfg.Path, err)
	}
	return nil
}

// Upsert acquires a connection for this call and upserts doc.
// See Conn.Upsert.
func (db *DB) Upsert(ctx context.Context, doc Document) (int64, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()
	return conn.Upsert(ctx, doc)
}

// Find acquires a connection for this call and looks up id.
// See Conn.Find.
func (db *DB) Find(ctx context.Context, id int64) (Document, bool, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return Document{}, false, err
	}
	defer conn.Release()
	return conn.Find(ctx, id)
}

// Delete acquires a connection for this call and deletes id.
// See Conn.Delete.
func (db *DB) Delete(ctx context.Context, id int64) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Delete(ctx, id)
}

// Search acquires a connection for this call and runs a predicate
// search. See Conn.Search.
func (db *DB) Search(ctx context.Context, preds ...docsql.Predicate) ([]Document, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.Search(ctx, preds...)
}

// All acquires a connection for this call and returns every document.
// See Conn.All.
func (db *DB) All(ctx context.Context) ([]Document, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.All(ctx)
}

// SearchField acquires a connection for this call and runs a single
// field-equality search. See Conn.SearchField.
func (db *DB) SearchField(ctx context.Context, field string, value any) ([]Document, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.SearchField(ctx, field, value)
}

// Aggregate acquires a connection for this call and runs an aggregate.
// See Conn.Aggregate.
func (db *DB) Aggregate(ctx context.Context, op docsql.AggregateOp, field string, preds ...docsql.Predicate) (any, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.Aggregate(ctx, op, field, preds...)
}

// AggregateRaw acquires a connection for this call and runs an aggregate
// with a raw WHERE clause. See Conn.AggregateRaw.
func (db *DB) AggregateRaw(ctx context.Context, op docsql.AggregateOp, field, rawWhere string) (any, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.AggregateRaw(ctx, op, field, rawWhere)
}

// BulkUpsert acquires a connection for this call and writes the batch in
// one transaction. See Conn.BulkUpsert.
func (db *DB) BulkUpsert(ctx context.Context, docs []Document) ([]int64, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.BulkUpsert(ctx, docs)
}

// EnsureSchema acquires a connection for this call and ensures the
// table and its indexes exist. See Conn.EnsureSchema.
func (db *DB) EnsureSchema(ctx context.Context) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.EnsureSchema(ctx)
}
