package workspace

import (
	"context"
	"sync"
	"testing"

	models "filespace/internal/domain/models/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultFolder_ConcurrentFirstCallers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.bootstrap.EnsureDefaultFolder(ctx, "u1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	folders, err := env.stores.Folders.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.True(t, folders[0].IsDefault)
	assert.Equal(t, "uploads/u1/my-documents/", folders[0].Pathname)
	assert.Equal(t, "my-documents/", folders[0].RelativePath)

	assert.Equal(t, []string{"uploads/u1/my-documents/"}, env.objectKeys(t, "uploads/u1/"))
}

func TestEnsureDefaultFolder_TwoUsersConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, owner := range []string{"alice", "bob", "alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.bootstrap.EnsureDefaultFolder(ctx, owner)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, owner := range []string{"alice", "bob"} {
		folders, err := env.stores.Folders.ListByOwner(ctx, owner)
		require.NoError(t, err)
		require.Len(t, folders, 1)
		assert.Equal(t, "uploads/"+owner+"/my-documents/", folders[0].Pathname)
		assert.Equal(t, owner, folders[0].OwnerID)
	}
	assert.Equal(t, []string{"uploads/alice/my-documents/"}, env.objectKeys(t, "uploads/alice/"))
	assert.Equal(t, []string{"uploads/bob/my-documents/"}, env.objectKeys(t, "uploads/bob/"))
}

func TestEnsureDefaultFolder_PatchesMissingFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.stores.Folders.Put(ctx, &models.Folder{
		OwnerID:      "u1",
		Pathname:     "uploads/u1/my-documents/",
		RelativePath: "my-documents/",
		Name:         "my-documents",
	}))

	folder, err := env.bootstrap.EnsureDefaultFolder(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, folder.IsDefault)

	stored, err := env.stores.Folders.Get(ctx, "u1", "uploads/u1/my-documents/")
	require.NoError(t, err)
	assert.True(t, stored.IsDefault)
}

func TestEnsureDefaultFolder_ToleratesExistingMarker(t *testing.T) {
	env := newTestEnv(t)
	env.putRaw(t, "uploads/u1/my-documents/", "")

	folder, err := env.bootstrap.EnsureDefaultFolder(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, folder.IsDefault)
	assert.Equal(t, 1, env.blobs.Len())
}
