package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ducttape/internal/docsql"
)

// Upsert inserts doc, or overwrites the data at doc.ID if that row
// already exists. Returns the document's id: the given one, or the
// engine-generated id for an id-less document.
//
// The statement is atomic; on failure nothing is written and the error
// is a WriteError carrying the offending id.
func (c *Conn) Upsert(ctx context.Context, doc Document) (int64, error) {
	raw, err := marshalData(doc)
	if err != nil {
		return 0, &WriteError{Op: "upsert", Table: c.db.cfg.Table, ID: doc.ID, Err: err}
	}

	if doc.ID == 0 {
		query := fmt.Sprintf("INSERT INTO %s (data) VALUES (json(?))", c.db.cfg.Table)
		res, err := c.sc.ExecContext(ctx, query, raw)
		if err != nil {
			return 0, &WriteError{Op: "upsert", Table: c.db.cfg.Table, Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, &WriteError{Op: "upsert", Table: c.db.cfg.Table, Err: err}
		}
		return id, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data) VALUES (?, json(?))
		ON CONFLICT (id) DO UPDATE SET data = json(?)`, c.db.cfg.Table)
	if _, err := c.sc.ExecContext(ctx, query, doc.ID, raw, raw); err != nil {
		return 0, &WriteError{Op: "upsert", Table: c.db.cfg.Table, ID: doc.ID, Err: err}
	}
	return doc.ID, nil
}

// Find looks up a document by id. An absent id is (zero, false, nil),
// not an error.
func (c *Conn) Find(ctx context.Context, id int64) (Document, bool, error) {
	query := fmt.Sprintf("SELECT id, data FROM %s WHERE id = ?", c.db.cfg.Table)

	var gotID int64
	var raw []byte
	err := c.sc.QueryRowContext(ctx, query, id).Scan(&gotID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("find document %d in %s: %w", id, c.db.cfg.Table, err)
	}

	doc, err := scanDocument(gotID, raw)
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

// Delete removes the document at id. Deleting an absent id is a no-op.
func (c *Conn) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.db.cfg.Table)
	if _, err := c.sc.ExecContext(ctx, query, id); err != nil {
		return &WriteError{Op: "delete", Table: c.db.cfg.Table, ID: id, Err: err}
	}
	return nil
}

// Search returns every document matching all the given predicates, in
// the engine's natural order. Fields and values are bound as parameters;
// operators come from docsql's allow-list. An empty predicate set is a
// ValidationError, raised before the connection is touched.
func (c *Conn) Search(ctx context.Context, preds ...docsql.Predicate) ([]Document, error) {
	query, params, err := docsql.CompileSearch(c.db.cfg.Table, preds)
	if err != nil {
		return nil, err
	}

	rows, err := c.sc.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.db.cfg.Table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("search %s: scan row: %w", c.db.cfg.Table, err)
		}
		doc, err := scanDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %s: %w", c.db.cfg.Table, err)
	}
	return docs, nil
}

// All returns every document in the table in id order. This is the
// explicit unconstrained scan; Search deliberately rejects an empty
// predicate set.
func (c *Conn) All(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf("SELECT id, data FROM %s ORDER BY id", c.db.cfg.Table)
	rows, err := c.sc.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.db.cfg.Table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.db.cfg.Table, err)
		}
		doc, err := scanDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.db.cfg.Table, err)
	}
	return docs, nil
}

// SearchField is the single-equality convenience form of Search.
func (c *Conn) SearchField(ctx context.Context, field string, value any) ([]Document, error) {
	return c.Search(ctx, docsql.Eq(field, value))
}

// Aggregate runs op over a JSON field, optionally constrained by
// predicates. The result is whatever scalar the engine produced (int64,
// float64 or string), or nil when there is nothing to aggregate.
func (c *Conn) Aggregate(ctx context.Context, op docsql.AggregateOp, field string, preds ...docsql.Predicate) (any, error) {
	query, params, err := docsql.CompileAggregate(c.db.cfg.Table, op, field, preds, "")
	if err != nil {
		return nil, err
	}
	return c.aggregate(ctx, query, params)
}

// AggregateRaw runs op with a caller-supplied WHERE clause interpolated
// verbatim. The clause must not be attacker-controlled; prefer the
// structured predicates of Aggregate.
func (c *Conn) AggregateRaw(ctx context.Context, op docsql.AggregateOp, field, rawWhere string) (any, error) {
	query, params, err := docsql.CompileAggregate(c.db.cfg.Table, op, field, nil, rawWhere)
	if err != nil {
		return nil, err
	}
	return c.aggregate(ctx, query, params)
}

func (c *Conn) aggregate(ctx context.Context, query string, params []any) (any, error) {
	var result any
	if err := c.sc.QueryRowContext(ctx, query, params...).Scan(&result); err != nil {
		return nil, fmt.Errorf("aggregate on %s: %w", c.db.cfg.Table, err)
	}
	if b, ok := result.([]byte); ok {
		return string(b), nil
	}
	return result, nil
}
