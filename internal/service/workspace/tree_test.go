package workspace

import (
	"context"
	"testing"

	"filespace/internal/blobstore/memory"
	models "filespace/internal/domain/models/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsByPath(items []models.TreeItem) map[string]models.TreeItem {
	out := make(map[string]models.TreeItem, len(items))
	for _, it := range items {
		out[it.RelativePath] = it
	}
	return out
}

func TestListTree_NewUserHasDefaultFolder(t *testing.T) {
	env := newTestEnv(t)

	items, err := env.tree.ListTree(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemKindFolder, items[0].Kind)
	assert.Equal(t, "my-documents/", items[0].RelativePath)
	assert.True(t, items[0].IsDefault)
	assert.False(t, items[0].Derived)
}

func TestListTree_NeverLosesFiles(t *testing.T) {
	env := newTestEnv(t, memory.WithPageSize(2))
	env.upload(t, "u1", "", "recorded.txt", "r")
	env.putRaw(t, "uploads/u1/a/b/c/deep.txt", "deep")
	env.putRaw(t, "uploads/u1/a/side.txt", "side")
	env.putRaw(t, "uploads/u1/top.txt", "top")
	env.putRaw(t, "uploads/u1/empty/", "")

	items, err := env.tree.ListTree(context.Background(), "u1")
	require.NoError(t, err)
	byPath := itemsByPath(items)

	for _, rel := range []string{"my-documents/recorded.txt", "a/b/c/deep.txt", "a/side.txt", "top.txt"} {
		item, ok := byPath[rel]
		require.True(t, ok, "missing %s", rel)
		assert.Equal(t, models.ItemKindFile, item.Kind)

		// Every file has a resolvable parent folder entry
		if item.ParentPath != "" {
			parent, ok := byPath[item.ParentPath]
			require.True(t, ok, "missing parent %s", item.ParentPath)
			assert.Equal(t, models.ItemKindFolder, parent.Kind)
		}
	}

	for _, rel := range []string{"a/", "a/b/", "a/b/c/", "empty/"} {
		item, ok := byPath[rel]
		require.True(t, ok, "missing derived %s", rel)
		assert.True(t, item.Derived)
	}

	assert.Equal(t, "deep.txt", byPath["a/b/c/deep.txt"].Name)
	assert.Equal(t, int64(4), byPath["a/b/c/deep.txt"].Size)
}

func TestListTree_DropsRecordsWithoutObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "gone.txt", "x")
	require.NoError(t, env.blobs.Delete(ctx, file.Pathname))

	assert.NotContains(t, env.relPaths(t, "u1"), "my-documents/gone.txt")
}

func TestListTree_DecoratesWithRecord(t *testing.T) {
	env := newTestEnv(t)
	doc := "note"
	file := env.upload(t, "u1", "", "a.txt", "x")
	file.DocType = &doc
	require.NoError(t, env.stores.Files.Put(context.Background(), file))

	items, err := env.tree.ListTree(context.Background(), "u1")
	require.NoError(t, err)
	item := itemsByPath(items)["my-documents/a.txt"]
	require.NotNil(t, item.DocType)
	assert.Equal(t, "note", *item.DocType)
	assert.NotNil(t, item.UploadedAt)
}

func TestListTree_StableOrder(t *testing.T) {
	env := newTestEnv(t)
	env.mkdir(t, "u1", "", "b")
	env.upload(t, "u1", "b", "z.txt", "z")
	env.upload(t, "u1", "b", "a.txt", "a")
	env.putRaw(t, "uploads/u1/a-file.txt", "x")

	first := env.relPaths(t, "u1")
	items, err := env.tree.ListTree(context.Background(), "u1")
	require.NoError(t, err)
	for i := 1; i < len(items); i++ {
		assert.LessOrEqual(t, items[i-1].RelativePath, items[i].RelativePath)
	}
	assert.Equal(t, first, env.relPaths(t, "u1"))
}

func TestListTree_UsersAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "alice", "", "secret.txt", "x")
	env.upload(t, "bob", "", "mine.txt", "y")

	alice := env.relPaths(t, "alice")
	assert.Contains(t, alice, "my-documents/secret.txt")
	assert.NotContains(t, alice, "my-documents/mine.txt")

	bob := env.relPaths(t, "bob")
	assert.Contains(t, bob, "my-documents/mine.txt")
	assert.NotContains(t, bob, "my-documents/secret.txt")
}

func TestRepair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	gone := env.upload(t, "u1", "", "gone.txt", "x")
	require.NoError(t, env.blobs.Delete(ctx, gone.Pathname))
	env.putRaw(t, "uploads/u1/orphan.txt", "o")
	env.putRaw(t, "uploads/u1/marker/", "")

	report, err := env.tree.Repair(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/u1/orphan.txt"}, report.FileRecordsCreated)
	assert.Equal(t, []string{gone.Pathname}, report.FileRecordsRemoved)
	assert.Equal(t, []string{"uploads/u1/marker/"}, report.FolderRecordsCreated)

	rec, err := env.stores.Files.Get(ctx, "u1", "uploads/u1/orphan.txt")
	require.NoError(t, err)
	assert.Equal(t, "orphan.txt", rec.RelativePath)
	assert.Equal(t, int64(1), rec.Size)

	again, err := env.tree.Repair(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, again.FileRecordsCreated)
	assert.Empty(t, again.FileRecordsRemoved)
	assert.Empty(t, again.FolderRecordsCreated)
}
