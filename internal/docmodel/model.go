// Package docmodel binds typed records to a document store.
//
// A Repo maps a record type to {id, data} documents: on load the stored
// JSON object is decoded into the record and the row id attached; on
// save the record is encoded back into the document payload. The store
// is injected at construction, never held in shared mutable state.
package docmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/ducttape/internal/docsql"
	"github.com/roach88/ducttape/internal/docstore"
)

// ErrNotFound reports that no record matched a typed lookup.
var ErrNotFound = errors.New("record not found")

// Record is implemented by types stored through a Repo. Embedding Base
// provides the implementation.
type Record interface {
	DocumentID() int64
	SetDocumentID(int64)
}

// Base carries the document id for a typed record. Embed it by pointer
// receiver semantics:
//
//	type Hero struct {
//		docmodel.Base
//		Name  string `json:"name"`
//		Level int    `json:"level"`
//	}
//
// The id lives in the table's id column, not in the JSON payload, so it
// is excluded from encoding.
type Base struct {
	ID int64 `json:"-"`
}

func (b *Base) DocumentID() int64      { return b.ID }
func (b *Base) SetDocumentID(id int64) { b.ID = id }

// Repo is a typed repository over one document store. T is the record
// struct; PT is its pointer type, which must implement Record.
type Repo[T any, PT interface {
	*T
	Record
}] struct {
	db *docstore.DB
}

// NewRepo binds a repository to a store.
func NewRepo[T any, PT interface {
	*T
	Record
}](db *docstore.DB) *Repo[T, PT] {
	return &Repo[T, PT]{db: db}
}

// Load retrieves the record at id. A missing row is ErrNotFound.
func (r *Repo[T, PT]) Load(ctx context.Context, id int64) (PT, error) {
	doc, ok, err := r.db.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("load record %d: %w", id, ErrNotFound)
	}
	return r.decode(doc)
}

// LoadWhere retrieves the record at id, requiring that it also satisfy
// the given field-equality conditions. Filtering happens database-side;
// a row that exists but fails a condition is ErrNotFound.
func (r *Repo[T, PT]) LoadWhere(ctx context.Context, id int64, conditions map[string]any) (PT, error) {
	if len(conditions) == 0 {
		return r.Load(ctx, id)
	}

	fields := make([]string, 0, len(conditions))
	for field := range conditions {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	preds := make([]docsql.Predicate, 0, len(fields))
	for _, field := range fields {
		preds = append(preds, docsql.Eq(field, conditions[field]))
	}

	docs, err := r.db.Search(ctx, preds...)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID == id {
			return r.decode(doc)
		}
	}
	return nil, fmt.Errorf("load record %d with conditions: %w", id, ErrNotFound)
}

// SearchBy returns every record matching the predicates.
func (r *Repo[T, PT]) SearchBy(ctx context.Context, preds ...docsql.Predicate) ([]PT, error) {
	docs, err := r.db.Search(ctx, preds...)
	if err != nil {
		return nil, err
	}
	recs := make([]PT, 0, len(docs))
	for _, doc := range docs {
		rec, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Save upserts the record and writes the assigned id back into it.
func (r *Repo[T, PT]) Save(ctx context.Context, rec PT) (int64, error) {
	doc, err := r.encode(rec)
	if err != nil {
		return 0, err
	}
	id, err := r.db.Upsert(ctx, doc)
	if err != nil {
		return 0, err
	}
	rec.SetDocumentID(id)
	return id, nil
}

// SaveAll upserts all records in one transaction via the batch writer.
// Ids are written back into the records in submission order; on failure
// nothing is saved and no ids change.
func (r *Repo[T, PT]) SaveAll(ctx context.Context, recs []PT) ([]int64, error) {
	docs := make([]docstore.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := r.encode(rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	ids, err := r.db.BulkUpsert(ctx, docs)
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		rec.SetDocumentID(ids[i])
	}
	return ids, nil
}

// Delete removes the record's row. Records without an id are a no-op.
func (r *Repo[T, PT]) Delete(ctx context.Context, rec PT) error {
	id := rec.DocumentID()
	if id == 0 {
		return nil
	}
	return r.db.Delete(ctx, id)
}

func (r *Repo[T, PT]) decode(doc docstore.Document) (PT, error) {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode record %d: %w", doc.ID, err)
	}
	rec := PT(new(T))
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", doc.ID, err)
	}
	rec.SetDocumentID(doc.ID)
	return rec, nil
}

func (r *Repo[T, PT]) encode(rec PT) (docstore.Document, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode record %d: %w", rec.DocumentID(), err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return docstore.Document{}, fmt.Errorf("encode record %d: %w", rec.DocumentID(), err)
	}
	return docstore.Document{ID: rec.DocumentID(), Data: data}, nil
}
