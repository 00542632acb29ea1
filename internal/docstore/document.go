package docstore

import (
	"encoding/json"
	"fmt"
)

// Document is the unit of storage: an integer id plus an arbitrary JSON
// object payload.
//
// ID zero means "not yet assigned" - SQLite AUTOINCREMENT ids start at 1,
// so zero never collides with a stored row. Once assigned, an id is stable
// and unique within its table.
type Document struct {
	ID   int64          `json:"id"`
	Data map[string]any `json:"data"`
}

// NewDocument creates an id-less document around the given payload.
// The first Upsert assigns its id.
func NewDocument(data map[string]any) Document {
	return Document{Data: data}
}

// marshalData renders the payload for the data column. A nil payload is
// stored as an empty object, never as JSON null (the column is NOT NULL
// and the wire shape requires an object).
func marshalData(doc Document) ([]byte, error) {
	if doc.Data == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("encode document data: %w", err)
	}
	return raw, nil
}

// scanDocument rebuilds a Document from a (id, data) row.
func scanDocument(id int64, raw []byte) (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, fmt.Errorf("decode document %d data: %w", id, err)
	}
	return Document{ID: id, Data: data}, nil
}
