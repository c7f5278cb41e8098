package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/remessa/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProgressRepo(t *testing.T) storage.ProgressRepository {
	t.Helper()
	progressRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return progressRepo
}

func TestProgressRepository_GetOffset(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	t.Run("unknown file starts at zero", func(t *testing.T) {
		offset, err := repo.GetOffset(ctx, "never-seen.csv")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), offset)
	})

	t.Run("returns committed offset", func(t *testing.T) {
		require.NoError(t, repo.SetOffset(ctx, "debts.csv", 100))
		offset, err := repo.GetOffset(ctx, "debts.csv")
		require.NoError(t, err)
		assert.Equal(t, uint64(100), offset)
	})

	t.Run("empty file id", func(t *testing.T) {
		_, err := repo.GetOffset(ctx, "")
		assert.ErrorIs(t, err, storage.ErrEmptyKey)
	})
}

func TestProgressRepository_GetProgress(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	_, err := repo.GetProgress(ctx, "debts.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.SetOffset(ctx, "debts.csv", 235))
	progress, err := repo.GetProgress(ctx, "debts.csv")
	require.NoError(t, err)
	assert.Equal(t, "debts.csv", progress.FileID)
	assert.Equal(t, uint64(235), progress.LastOffset)
	assert.False(t, progress.UpdatedAt.IsZero())
}

func TestProgressRepository_SetOffset(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	t.Run("advances monotonically", func(t *testing.T) {
		for _, offset := range []uint64{100, 200, 235} {
			require.NoError(t, repo.SetOffset(ctx, "debts.csv", offset))
		}
		offset, err := repo.GetOffset(ctx, "debts.csv")
		require.NoError(t, err)
		assert.Equal(t, uint64(235), offset)
	})

	t.Run("same offset is accepted", func(t *testing.T) {
		require.NoError(t, repo.SetOffset(ctx, "debts.csv", 235))
	})

	t.Run("regression is rejected", func(t *testing.T) {
		err := repo.SetOffset(ctx, "debts.csv", 100)
		assert.ErrorIs(t, err, storage.ErrOffsetRegression)

		offset, err := repo.GetOffset(ctx, "debts.csv")
		require.NoError(t, err)
		assert.Equal(t, uint64(235), offset)
	})

	t.Run("files are independent", func(t *testing.T) {
		require.NoError(t, repo.SetOffset(ctx, "other.csv", 5))
		offset, err := repo.GetOffset(ctx, "debts.csv")
		require.NoError(t, err)
		assert.Equal(t, uint64(235), offset)
	})
}

func TestProgressRepository_DeleteProgress(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	existed, err := repo.DeleteProgress(ctx, "debts.csv")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, repo.SetOffset(ctx, "debts.csv", 300))
	existed, err = repo.DeleteProgress(ctx, "debts.csv")
	require.NoError(t, err)
	assert.True(t, existed)

	offset, err := repo.GetOffset(ctx, "debts.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), offset)

	// After a reset the offset may start over.
	require.NoError(t, repo.SetOffset(ctx, "debts.csv", 100))
}

func TestProgressRepository_ListProgress(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	list, err := repo.ListProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.SetOffset(ctx, "b.csv", 20))
	require.NoError(t, repo.SetOffset(ctx, "a.csv", 10))

	list, err = repo.ListProgress(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.csv", list[0].FileID)
	assert.Equal(t, uint64(10), list[0].LastOffset)
	assert.Equal(t, "b.csv", list[1].FileID)
}

func TestProgressRepository_ConcurrentCommits(t *testing.T) {
	repo := setupProgressRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(offset uint64) {
			defer wg.Done()
			// Losers either conflict or regress; neither may lower the offset.
			_ = repo.SetOffset(ctx, "debts.csv", offset)
		}(uint64(i * 10))
	}
	wg.Wait()

	require.NoError(t, repo.SetOffset(ctx, "debts.csv", 200))
	offset, err := repo.GetOffset(ctx, "debts.csv")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), offset)
}
