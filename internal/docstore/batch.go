package docstore

import (
	"context"
	"fmt"
)

// BulkUpsert writes the whole batch in one transaction and returns one
// id per input document, in input order.
//
// Documents with explicit ids keep them. Generated ids are recovered by
// reading the top N ids in descending order before commit and assigning
// them to the id-less documents in reverse, so the first id-less
// document submitted receives the smallest generated id. The read
// happens inside this write transaction, and SQLite admits one writer at
// a time, so no other writer's inserts can interleave into the window.
//
// Fail-atomic: any failure rolls back the whole batch and returns a
// WriteError; no ids are assigned.
func (c *Conn) BulkUpsert(ctx context.Context, docs []Document) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	table := c.db.cfg.Table
	tx, err := c.sc.BeginTx(ctx, nil)
	if err != nil {
		return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, data) VALUES (?, json(?))
		ON CONFLICT (id) DO UPDATE SET data = json(?)`, table)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
	}
	defer stmt.Close()

	ids := make([]int64, len(docs))
	explicit := make(map[int64]bool)
	var pending []int // positions of id-less documents, in submission order
	for i, doc := range docs {
		raw, err := marshalData(doc)
		if err != nil {
			tx.Rollback()
			return nil, &WriteError{Op: "bulk upsert", Table: table, ID: doc.ID, Err: err}
		}

		var idParam any
		if doc.ID != 0 {
			idParam = doc.ID
			ids[i] = doc.ID
			explicit[doc.ID] = true
		} else {
			pending = append(pending, i)
		}
		if _, err := stmt.ExecContext(ctx, idParam, raw, raw); err != nil {
			tx.Rollback()
			return nil, &WriteError{Op: "bulk upsert", Table: table, ID: doc.ID, Err: err}
		}
	}

	if len(pending) > 0 {
		rows, err := tx.QueryContext(ctx,
			fmt.Sprintf("SELECT id FROM %s ORDER BY id DESC LIMIT ?", table), len(pending))
		if err != nil {
			tx.Rollback()
			return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
		}
		var descIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				tx.Rollback()
				return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
			}
			descIDs = append(descIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			tx.Rollback()
			return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
		}
		if len(descIDs) != len(pending) {
			tx.Rollback()
			return nil, &WriteError{Op: "bulk upsert", Table: table,
				Err: fmt.Errorf("expected %d generated ids, got %d", len(pending), len(descIDs))}
		}
		// An explicit id above the autoincrement counter would land in the
		// top-N scan and silently mismap generated ids. Refuse the batch
		// instead.
		for _, id := range descIDs {
			if explicit[id] {
				tx.Rollback()
				return nil, &WriteError{Op: "bulk upsert", Table: table, ID: id,
					Err: fmt.Errorf("explicit id %d overlaps the generated id range", id)}
			}
		}

		// descIDs[0] is the newest id. Reverse-assign so the Nth-from-last
		// generated id goes to the first id-less document submitted.
		for j, pos := range pending {
			ids[pos] = descIDs[len(descIDs)-1-j]
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &WriteError{Op: "bulk upsert", Table: table, Err: err}
	}
	return ids, nil
}
