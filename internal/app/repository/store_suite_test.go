package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite checks the LinkStore contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) LinkStore) {
	t.Run("insert then find", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		before := time.Now().UTC().Add(-time.Second)
		created, err := store.Insert(ctx, "bmdkw", "https://crates.io/")
		require.NoError(t, err)
		assert.Equal(t, "bmdkw", created.ID)
		assert.Equal(t, "https://crates.io/", created.TargetURL)
		assert.Zero(t, created.CountRedirects)
		assert.True(t, created.CreatedAt.After(before))
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

		found, err := store.FindByID(ctx, "bmdkw")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, created.TargetURL, found.TargetURL)
		assert.WithinDuration(t, created.CreatedAt, found.CreatedAt, time.Millisecond)
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Insert(ctx, "dup", "https://one.example/")
		require.NoError(t, err)

		_, err = store.Insert(ctx, "dup", "https://two.example/")
		assert.ErrorIs(t, err, ErrDuplicateID)

		found, err := store.FindByID(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "https://one.example/", found.TargetURL)
	})

	t.Run("missing id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrLinkNotFound)

		_, err = store.IncrementRedirectCount(ctx, "nope")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("list empty", func(t *testing.T) {
		store := newStore(t)

		links, err := store.ListAll(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, links)
		assert.Empty(t, links)
	})

	t.Run("list returns every link", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"a", "b", "c"} {
			_, err := store.Insert(ctx, id, "https://"+id+".example/")
			require.NoError(t, err)
		}

		links, err := store.ListAll(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(links))
		for _, l := range links {
			ids = append(ids, l.ID)
		}
		assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	})

	t.Run("increment", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.Insert(ctx, "inc", "https://inc.example/")
		require.NoError(t, err)

		first, err := store.IncrementRedirectCount(ctx, "inc")
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.CountRedirects)
		assert.False(t, first.UpdatedAt.Before(created.UpdatedAt))
		assert.Equal(t, created.TargetURL, first.TargetURL)

		second, err := store.IncrementRedirectCount(ctx, "inc")
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.CountRedirects)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Insert(ctx, "hot", "https://hot.example/")
		require.NoError(t, err)

		const workers = 20
		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			go func() {
				defer wg.Done()
				_, err := store.IncrementRedirectCount(ctx, "hot")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		found, err := store.FindByID(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(workers), found.CountRedirects)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Insert(ctx, "x", "https://x.example/")
		assert.Error(t, err)
	})
}
