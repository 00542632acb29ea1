package docstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ducttape/internal/docsql"
	"github.com/roach88/ducttape/internal/testutil"
)

func openTestStore(t *testing.T) *DB {
	t.Helper()
	cfg := DefaultConfig(testutil.TempDBPath(t))
	cfg.Indexes = []string{"name", "level"}
	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHeroes(t *testing.T, db *DB) []int64 {
	t.Helper()
	ids := make([]int64, 0, 3)
	for _, data := range testutil.Heroes() {
		id, err := db.Upsert(context.Background(), NewDocument(data))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// jsonNormalize round-trips a payload through JSON so fixture ints
// compare equal to the float64s decoding produces.
func jsonNormalize(t *testing.T, data map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestUpsert_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	data := map[string]any{
		"name":  "samwise",
		"level": 4,
		"bag":   map[string]any{"rope": true, "taters": 12},
		"tags":  []any{"loyal", "gardener"},
	}
	id, err := db.Upsert(ctx, NewDocument(data))
	require.NoError(t, err)
	require.NotZero(t, id)

	doc, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, doc.ID)

	if diff := cmp.Diff(jsonNormalize(t, data), doc.Data); diff != "" {
		t.Errorf("round-tripped data mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsert_UpdateInPlace(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	id, err := db.Upsert(ctx, NewDocument(map[string]any{"name": "before"}))
	require.NoError(t, err)

	got, err := db.Upsert(ctx, Document{ID: id, Data: map[string]any{"name": "after"}})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	count, err := db.Aggregate(ctx, docsql.AggCount, "name")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "exactly one row should exist at the id")

	doc, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "after", doc.Data["name"])
}

func TestUpsert_NilDataStoredAsEmptyObject(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	id, err := db.Upsert(ctx, Document{})
	require.NoError(t, err)

	doc, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, doc.Data)
}

func TestFind_Absent(t *testing.T) {
	db := openTestStore(t)

	_, ok, err := db.Find(context.Background(), 424242)
	require.NoError(t, err, "an absent id is not an error")
	assert.False(t, ok)
}

func TestDelete_ThenFind(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	id, err := db.Upsert(ctx, NewDocument(map[string]any{"name": "doomed"}))
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, id))

	_, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op, not an error.
	require.NoError(t, db.Delete(ctx, id))
}

func TestSearch_SinglePredicate(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedHeroes(t, db)

	docs, err := db.Search(ctx, docsql.Predicate{Field: "level", Op: docsql.OpGt, Value: 5})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	levels := map[float64]bool{}
	for _, doc := range docs {
		levels[doc.Data["level"].(float64)] = true
	}
	assert.True(t, levels[7])
	assert.True(t, levels[9])
}

func TestSearch_MultiplePredicates(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedHeroes(t, db)

	docs, err := db.Search(ctx,
		docsql.Predicate{Field: "level", Op: docsql.OpGt, Value: 5},
		docsql.Predicate{Field: "hp", Op: docsql.OpLt, Value: 25},
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "aragorn", docs[0].Data["name"])
}

func TestSearchField_Equality(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedHeroes(t, db)

	docs, err := db.SearchField(ctx, "name", "gandalf")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.EqualValues(t, 9, docs[0].Data["level"])
}

func TestSearch_NoMatches(t *testing.T) {
	db := openTestStore(t)
	seedHeroes(t, db)

	docs, err := db.Search(context.Background(), docsql.Eq("name", "sauron"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_EmptyPredicates(t *testing.T) {
	db := openTestStore(t)

	_, err := db.Search(context.Background())
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestSearch_InjectionValueIsInert(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedHeroes(t, db)

	hostile := "'; DROP TABLE documents; --"
	docs, err := db.Search(ctx, docsql.Eq("name", hostile))
	require.NoError(t, err)
	assert.Empty(t, docs)

	// The table survived and still answers queries.
	count, err := db.Aggregate(ctx, docsql.AggCount, "name")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	// A stored hostile value comes back as the literal string.
	id, err := db.Upsert(ctx, NewDocument(map[string]any{"name": hostile}))
	require.NoError(t, err)
	doc, ok, err := db.Find(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hostile, doc.Data["name"])
}

func TestAggregate_Sum(t *testing.T) {
	db := openTestStore(t)
	seedHeroes(t, db)

	sum, err := db.Aggregate(context.Background(), docsql.AggSum, "hp")
	require.NoError(t, err)
	assert.EqualValues(t, 59, sum)
}

func TestAggregate_CountWithPredicate(t *testing.T) {
	db := openTestStore(t)
	seedHeroes(t, db)

	count, err := db.Aggregate(context.Background(), docsql.AggCount, "level",
		docsql.Predicate{Field: "level", Op: docsql.OpGt, Value: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestAggregate_MinMaxAvg(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	seedHeroes(t, db)

	lo, err := db.Aggregate(ctx, docsql.AggMin, "level")
	require.NoError(t, err)
	assert.EqualValues(t, 3, lo)

	hi, err := db.Aggregate(ctx, docsql.AggMax, "level")
	require.NoError(t, err)
	assert.EqualValues(t, 9, hi)

	avg, err := db.Aggregate(ctx, docsql.AggAvg, "hp")
	require.NoError(t, err)
	assert.InDelta(t, 59.0/3.0, avg, 0.0001)
}

func TestAggregate_EmptyTableIsAbsent(t *testing.T) {
	db := openTestStore(t)

	sum, err := db.Aggregate(context.Background(), docsql.AggSum, "hp")
	require.NoError(t, err)
	assert.Nil(t, sum, "SUM over nothing is an absent result, not an error")
}

func TestAggregateRaw_CallerOwnedWhere(t *testing.T) {
	db := openTestStore(t)
	seedHeroes(t, db)

	count, err := db.AggregateRaw(context.Background(), docsql.AggCount, "level",
		"json_extract(data, '$.level') > 5")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestAggregate_InvalidOpRejected(t *testing.T) {
	db := openTestStore(t)

	_, err := db.Aggregate(context.Background(), "GROUP_CONCAT", "name")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestUpsert_WriteErrorCarriesID(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	// A payload JSON cannot encode fails before any SQL runs.
	_, err := db.Upsert(ctx, Document{ID: 7, Data: map[string]any{"bad": func() {}}})
	require.Error(t, err)
	require.True(t, IsWriteError(err))
	assert.Contains(t, err.Error(), "document 7")

	_, err = db.Upsert(ctx, Document{Data: map[string]any{"bad": func() {}}})
	require.Error(t, err)
	require.True(t, IsWriteError(err))
	assert.Contains(t, err.Error(), "document new")
}
