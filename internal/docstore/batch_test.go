package docstore

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ducttape/internal/docsql"
)

func TestBulkUpsert_GeneratedIDsFollowSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	docs := []Document{
		NewDocument(map[string]any{"name": "first"}),
		NewDocument(map[string]any{"name": "second"}),
		NewDocument(map[string]any{"name": "third"}),
	}
	ids, err := db.BulkUpsert(ctx, docs)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] < ids[j] }),
		"generated ids should ascend with submission order, got %v", ids)

	want := []string{"first", "second", "third"}
	for i, id := range ids {
		doc, ok, err := db.Find(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want[i], doc.Data["name"], "id %d should hold document %d", id, i)
	}
}

func TestBulkUpsert_MixedUpdateAndGenerated(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	existing, err := db.Upsert(ctx, NewDocument(map[string]any{"name": "old"}))
	require.NoError(t, err)

	docs := []Document{
		NewDocument(map[string]any{"name": "gen-a"}),
		{ID: existing, Data: map[string]any{"name": "updated"}},
		NewDocument(map[string]any{"name": "gen-b"}),
	}
	ids, err := db.BulkUpsert(ctx, docs)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	assert.Equal(t, existing, ids[1])
	assert.Less(t, ids[0], ids[2], "generated ids keep submission order")

	for i, id := range ids {
		doc, ok, err := db.Find(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, docs[i].Data["name"], doc.Data["name"])
	}
}

func TestBulkUpsert_ExplicitIDAboveCounterRefused(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	// An explicit id far above the autoincrement counter would pollute
	// the generated-id scan; the batch fails whole rather than mismap.
	docs := []Document{
		NewDocument(map[string]any{"name": "gen"}),
		{ID: 5000, Data: map[string]any{"name": "poison"}},
	}
	_, err := db.BulkUpsert(ctx, docs)
	require.Error(t, err)
	assert.True(t, IsWriteError(err))

	count, err := db.Aggregate(ctx, docsql.AggCount, "name")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestBulkUpsert_OverwritesExistingIDs(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	id, err := db.Upsert(ctx, NewDocument(map[string]any{"name": "old"}))
	require.NoError(t, err)

	ids, err := db.BulkUpsert(ctx, []Document{{ID: id, Data: map[string]any{"name": "new"}}})
	require.NoError(t, err)
	require.Equal(t, []int64{id}, ids)

	doc, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", doc.Data["name"])
}

func TestBulkUpsert_EmptyBatch(t *testing.T) {
	db := openTestStore(t)

	ids, err := db.BulkUpsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBulkUpsert_FailAtomic(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	docs := []Document{
		NewDocument(map[string]any{"name": "would-commit"}),
		NewDocument(map[string]any{"bad": func() {}}), // unencodable, fails mid-batch
	}
	_, err := db.BulkUpsert(ctx, docs)
	require.Error(t, err)
	assert.True(t, IsWriteError(err))

	count, err := db.Aggregate(ctx, docsql.AggCount, "name")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count, "a failed batch must leave nothing behind")
}

func TestBulkUpsert_LargeBatch(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	const n = 250
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = NewDocument(map[string]any{"seq": i, "name": fmt.Sprintf("doc-%03d", i)})
	}
	ids, err := db.BulkUpsert(ctx, docs)
	require.NoError(t, err)
	require.Len(t, ids, n)

	for i, id := range ids {
		doc, ok, err := db.Find(ctx, id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.EqualValues(t, i, doc.Data["seq"])
	}
}
