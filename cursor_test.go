package filedepot_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedepot/filedepot"
)

func TestFileCursor(t *testing.T) {
	ctx := context.Background()

	t.Run("over an absent record", func(t *testing.T) {
		coll, _, _, _ := newTestCollection(t, filedepot.CollectionConfig{})

		fc, err := coll.FindOne(ctx, filedepot.Query{ID: "missing"})
		require.NoError(t, err)
		assert.Nil(t, fc.Get())

		err = fc.Remove(ctx)
		assert.Equal(t, 404, filedepot.Code(err))
		assert.Contains(t, err.Error(), "No such file")

		_, err = fc.Link("", "http://x")
		assert.Equal(t, 404, filedepot.Code(err))

		out := <-fc.RemoveAsync(ctx)
		assert.Equal(t, 404, filedepot.Code(out.Err))
	})

	t.Run("remove deletes exactly the wrapped record", func(t *testing.T) {
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{})
		base := time.Now().UTC()
		seedRecord(t, store, storage, "a1", "a.txt", "u1", base, []byte("aaaa"))
		seedRecord(t, store, storage, "b2", "b.txt", "u1", base.Add(time.Second), []byte("bbbb"))

		fc, err := coll.FindOne(ctx, filedepot.Query{ID: "a1"})
		require.NoError(t, err)
		require.NotNil(t, fc.Get())

		require.NoError(t, fc.Remove(ctx))

		assert.False(t, storage.has("a1.txt"))
		assert.True(t, storage.has("b2.txt"))

		n, err := store.Count(ctx, filedepot.Query{})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("link delegates to the collection", func(t *testing.T) {
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{Name: "docs"})
		seedRecord(t, store, storage, "a1", "a.txt", "u1", time.Now().UTC(), []byte("aaaa"))

		fc, err := coll.FindOne(ctx, filedepot.Query{ID: "a1"})
		require.NoError(t, err)

		link, err := fc.Link("", "https://example.com")
		assert.NoError(t, err)
		assert.Equal(t, "https://example.com/docs/a1/original/a.txt", link)

		out := <-fc.LinkAsync("", "https://example.com")
		assert.NoError(t, out.Err)
		assert.Equal(t, link, out.Value)
	})
}

func TestFilesCursor_Navigation(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*filedepot.Collection, *memStore, *memStorage) {
		t.Helper()
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{})
		base := time.Now().UTC()
		for i, id := range []string{"a1", "b2", "c3"} {
			seedRecord(t, store, storage, id, id+".txt", "u1", base.Add(time.Duration(i)*time.Second), []byte("data"))
		}
		return coll, store, storage
	}

	t.Run("fetch returns all records in order", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		recs, err := fc.Fetch(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "a1", recs[0].ID)
		assert.Equal(t, "b2", recs[1].ID)
		assert.Equal(t, "c3", recs[2].ID)
	})

	t.Run("position starts before the first record", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		assert.False(t, fc.HasPrevious())

		hasNext, err := fc.HasNext(ctx)
		require.NoError(t, err)
		assert.True(t, hasNext)

		first, err := fc.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "a1", first.ID)
		assert.False(t, fc.HasPrevious(), "previous from the first record would leave the result set")
	})

	t.Run("walk forward then back", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		var forward []string
		for {
			rec, err := fc.Next(ctx)
			require.NoError(t, err)
			if rec == nil {
				break
			}
			forward = append(forward, rec.ID)
		}
		assert.Equal(t, []string{"a1", "b2", "c3"}, forward)

		// The walk above stepped one past the end.
		prev, err := fc.Previous(ctx)
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, "c3", prev.ID)

		prev, err = fc.Previous(ctx)
		require.NoError(t, err)
		assert.Equal(t, "b2", prev.ID)
		assert.True(t, fc.HasPrevious())
	})

	t.Run("previous before the start clamps and stays usable", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		prev, err := fc.Previous(ctx)
		require.NoError(t, err)
		assert.Nil(t, prev)

		prev, err = fc.Previous(ctx)
		require.NoError(t, err)
		assert.Nil(t, prev)

		next, err := fc.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "a1", next.ID)
	})

	t.Run("hasNext observes inserts made after the cursor", func(t *testing.T) {
		coll, store, storage := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		for range 3 {
			_, err := fc.Next(ctx)
			require.NoError(t, err)
		}
		hasNext, err := fc.HasNext(ctx)
		require.NoError(t, err)
		assert.False(t, hasNext)

		seedRecord(t, store, storage, "d4", "d.txt", "u1", time.Now().UTC().Add(time.Hour), []byte("data"))

		hasNext, err = fc.HasNext(ctx)
		require.NoError(t, err)
		assert.True(t, hasNext)

		rec, err := fc.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "d4", rec.ID)
	})

	t.Run("next past the end is nil without error", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{ID: "a1"}, filedepot.FindOptions{})
		require.NoError(t, err)

		rec, err := fc.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)

		rec, err = fc.Next(ctx)
		assert.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("empty result set", func(t *testing.T) {
		coll, _, _, _ := newTestCollection(t, filedepot.CollectionConfig{})
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		recs, err := fc.Fetch(ctx)
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)

		hasNext, err := fc.HasNext(ctx)
		require.NoError(t, err)
		assert.False(t, hasNext)

		rec, err := fc.Next(ctx)
		assert.NoError(t, err)
		assert.Nil(t, rec)

		_, err = fc.First(ctx)
		assert.ErrorIs(t, err, filedepot.ErrNotFound)

		_, err = fc.Last(ctx)
		assert.ErrorIs(t, err, filedepot.ErrNotFound)
	})
}

func TestFilesCursor_Terminal(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*filedepot.Collection, *memStore, *memStorage) {
		t.Helper()
		coll, store, storage, _ := newTestCollection(t, filedepot.CollectionConfig{})
		base := time.Now().UTC()
		seedRecord(t, store, storage, "a1", "a.txt", "u1", base, []byte("aaaa"))
		seedRecord(t, store, storage, "b2", "b.txt", "u2", base.Add(time.Second), []byte("bbbb"))
		seedRecord(t, store, storage, "c3", "c.txt", "u1", base.Add(2*time.Second), []byte("cccc"))
		return coll, store, storage
	}

	t.Run("count, first and last", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{UserID: "u1"}, filedepot.FindOptions{})
		require.NoError(t, err)

		n, err := fc.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		first, err := fc.First(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a1", first.ID)

		last, err := fc.Last(ctx)
		require.NoError(t, err)
		assert.Equal(t, "c3", last.ID)

		firstOut := <-fc.FirstAsync(ctx)
		require.NoError(t, firstOut.Err)
		assert.Equal(t, first, firstOut.Value)
	})

	t.Run("forEach walks in order and stops on error", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		var ids []string
		err = fc.ForEach(ctx, func(rec filedepot.FileRecord) error {
			ids = append(ids, rec.ID)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a1", "b2", "c3"}, ids)

		stopAt := 0
		err = fc.ForEach(ctx, func(rec filedepot.FileRecord) error {
			stopAt++
			if stopAt == 2 {
				return fmt.Errorf("stop here")
			}
			return nil
		})
		assert.Error(t, err)
		assert.Equal(t, 2, stopAt)
	})

	t.Run("remove cascades over every match", func(t *testing.T) {
		coll, store, storage := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{UserID: "u1"}, filedepot.FindOptions{})
		require.NoError(t, err)

		removed, err := fc.Remove(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		assert.False(t, storage.has("a1.txt"))
		assert.False(t, storage.has("c3.txt"))
		assert.True(t, storage.has("b2.txt"))

		n, err := store.Count(ctx, filedepot.Query{})
		assert.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("skip and limit window", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{Skip: 1, Limit: 1})
		require.NoError(t, err)

		recs, err := fc.Fetch(ctx)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "b2", recs[0].ID)

		n, err := fc.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("async forms agree with blocking forms", func(t *testing.T) {
		coll, _, _ := seed(t)
		fc, err := coll.Find(ctx, filedepot.Query{}, filedepot.FindOptions{})
		require.NoError(t, err)

		syncRecs, syncErr := fc.Fetch(ctx)
		require.NoError(t, syncErr)
		out := <-fc.FetchAsync(ctx)
		require.NoError(t, out.Err)
		assert.Equal(t, syncRecs, out.Value)

		countOut := <-fc.CountAsync(ctx)
		require.NoError(t, countOut.Err)
		assert.Equal(t, int64(3), countOut.Value)

		lastOut := <-fc.LastAsync(ctx)
		require.NoError(t, lastOut.Err)
		assert.Equal(t, "c3", lastOut.Value.ID)

		nextOut := <-fc.NextAsync(ctx)
		require.NoError(t, nextOut.Err)
		require.NotNil(t, nextOut.Value)
		assert.Equal(t, "a1", nextOut.Value.ID)
	})
}
