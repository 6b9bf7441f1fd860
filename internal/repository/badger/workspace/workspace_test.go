package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/repository/badger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *badger.RepositoryConfig {
	t.Helper()
	db, err := badger.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &badger.RepositoryConfig{
		DB:     db,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFileRepository_CRUD(t *testing.T) {
	repo := NewFileRepository(newTestConfig(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1", "uploads/u1/a.txt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	file := &models.File{
		OwnerID:      "u1",
		Pathname:     "uploads/u1/a.txt",
		RelativePath: "a.txt",
		Name:         "a.txt",
		Size:         3,
	}
	require.NoError(t, repo.Put(ctx, file))

	got, err := repo.Get(ctx, "u1", "uploads/u1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Size)

	// Scoped by owner: another user's lookup of the same pathname misses
	_, err = repo.Get(ctx, "u2", "uploads/u1/a.txt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.Delete(ctx, "u1", "uploads/u1/a.txt"))
	require.NoError(t, repo.Delete(ctx, "u1", "uploads/u1/a.txt"))
	_, err = repo.Get(ctx, "u1", "uploads/u1/a.txt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFileRepository_ListByOwnerIsolated(t *testing.T) {
	repo := NewFileRepository(newTestConfig(t))
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, &models.File{OwnerID: "u1", Pathname: "uploads/u1/a.txt"}))
	require.NoError(t, repo.Put(ctx, &models.File{OwnerID: "u1", Pathname: "uploads/u1/b.txt"}))
	require.NoError(t, repo.Put(ctx, &models.File{OwnerID: "u10", Pathname: "uploads/u10/c.txt"}))

	files, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFolderRepository_MergeKeepsCreatedAt(t *testing.T) {
	repo := NewFolderRepository(newTestConfig(t))
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Put(ctx, &models.Folder{
		OwnerID:      "u1",
		Pathname:     "uploads/u1/my-documents/",
		RelativePath: "my-documents/",
		Name:         "old",
		CreatedAt:    created,
		UpdatedAt:    created,
	}))

	now := created.Add(time.Hour)
	merged, err := repo.Merge(ctx, &models.Folder{
		OwnerID:   "u1",
		Pathname:  "uploads/u1/my-documents/",
		Name:      "my-documents",
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, merged.IsDefault)
	assert.Equal(t, "my-documents", merged.Name)
	assert.True(t, created.Equal(merged.CreatedAt))
	assert.Equal(t, "my-documents/", merged.RelativePath)
}

func TestFolderRepository_ConcurrentMerge(t *testing.T) {
	repo := NewFolderRepository(newTestConfig(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Merge(ctx, &models.Folder{
				OwnerID:   "u1",
				Pathname:  "uploads/u1/my-documents/",
				Name:      "my-documents",
				IsDefault: true,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	folders, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.True(t, folders[0].IsDefault)
}

func TestBatchWriter_DeletesThenPuts(t *testing.T) {
	cfg := newTestConfig(t)
	files := NewFileRepository(cfg)
	folders := NewFolderRepository(cfg)
	batch := NewBatchWriter(cfg)
	ctx := context.Background()

	require.NoError(t, folders.Put(ctx, &models.Folder{OwnerID: "u1", Pathname: "uploads/u1/reports/"}))
	require.NoError(t, files.Put(ctx, &models.File{OwnerID: "u1", Pathname: "uploads/u1/reports/q1.txt"}))
	require.NoError(t, files.Put(ctx, &models.File{OwnerID: "u1", Pathname: "uploads/u1/keep.txt"}))

	err := batch.CommitBatch(ctx, &wsRepo.MetadataBatch{
		OwnerID:       "u1",
		DeleteFolders: []string{"uploads/u1/reports/"},
		DeleteFiles:   []string{"uploads/u1/reports/q1.txt", "uploads/u1/keep.txt"},
		PutFolders:    []models.Folder{{OwnerID: "u1", Pathname: "uploads/u1/archive/"}},
		PutFiles: []models.File{
			{OwnerID: "u1", Pathname: "uploads/u1/archive/q1.txt"},
			{OwnerID: "u1", Pathname: "uploads/u1/keep.txt", Size: 9},
		},
	})
	require.NoError(t, err)

	_, err = folders.Get(ctx, "u1", "uploads/u1/reports/")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = folders.Get(ctx, "u1", "uploads/u1/archive/")
	assert.NoError(t, err)
	_, err = files.Get(ctx, "u1", "uploads/u1/archive/q1.txt")
	assert.NoError(t, err)

	// Same key deleted and put in one batch ends up put
	keep, err := files.Get(ctx, "u1", "uploads/u1/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(9), keep.Size)
}

func TestBatchWriter_Empty(t *testing.T) {
	batch := NewBatchWriter(newTestConfig(t))
	assert.NoError(t, batch.CommitBatch(context.Background(), &wsRepo.MetadataBatch{OwnerID: "u1"}))
}
