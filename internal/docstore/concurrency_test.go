package docstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ducttape/internal/testutil"
)

func TestConcurrentWriters_DistinctIDs(t *testing.T) {
	ctx := context.Background()
	db, err := OpenFile(testutil.TempDBPath(t), "docs")
	require.NoError(t, err)
	defer db.Close()

	const writers = 16

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			// Each goroutine owns its connection for the duration.
			conn, err := db.Acquire(ctx)
			if err != nil {
				return err
			}
			defer conn.Release()

			id := int64(i + 1)
			doc := Document{ID: id, Data: map[string]any{"writer": fmt.Sprintf("w%d", i)}}
			if _, err := conn.Upsert(ctx, doc); err != nil {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < writers; i++ {
		doc, ok, err := db.Find(ctx, int64(i+1))
		require.NoError(t, err)
		require.True(t, ok, "document %d should be retrievable", i+1)
		assert.Equal(t, fmt.Sprintf("w%d", i), doc.Data["writer"])
	}
}

func TestConcurrentReaders_DuringWrites(t *testing.T) {
	ctx := context.Background()
	db, err := OpenFile(testutil.TempDBPath(t), "docs")
	require.NoError(t, err)
	defer db.Close()

	seedHeroes(t, db)

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 20; j++ {
				if _, err := db.Upsert(ctx, NewDocument(map[string]any{"writer": i, "n": j})); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for j := 0; j < 20; j++ {
				if _, _, err := db.Find(ctx, 1); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestSingleConn_SerializesCooperativeCallers(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(testutil.TempDBPath(t))
	cfg.SingleConn = true
	cfg.WAL = false

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	// DB-level calls queue on the one connection instead of failing.
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			_, err := db.Upsert(ctx, Document{ID: int64(i + 1), Data: map[string]any{"n": i}})
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := 1; i <= 8; i++ {
		_, ok, err := db.Find(ctx, int64(i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
