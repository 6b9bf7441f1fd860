package workspace

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	wsSvc "filespace/internal/domain/services/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFile_DefaultsToDefaultFolder(t *testing.T) {
	env := newTestEnv(t)

	file := env.upload(t, "u1", "", "Meeting notes.txt", "hello")
	assert.Equal(t, "uploads/u1/my-documents/Meeting-notes.txt", file.Pathname)
	assert.Equal(t, "my-documents/Meeting-notes.txt", file.RelativePath)
	assert.Equal(t, "my-documents/", file.ParentPath)
	assert.Equal(t, "Meeting-notes.txt", file.Name)
	assert.Equal(t, int64(5), file.Size)
	assert.Contains(t, file.ContentType, "text/plain")

	stored, err := env.stores.Files.Get(context.Background(), "u1", file.Pathname)
	require.NoError(t, err)
	assert.Equal(t, file.Pathname, stored.Pathname)
}

func TestCreateFile_CollisionGetsTimestampToken(t *testing.T) {
	env := newTestEnv(t)

	first := env.upload(t, "u1", "", "q1.txt", "a")
	second := env.upload(t, "u1", "", "q1.txt", "b")

	assert.Equal(t, "uploads/u1/my-documents/q1.txt", first.Pathname)
	assert.Regexp(t, regexp.MustCompile(`^uploads/u1/my-documents/q1-\d+\.txt$`), second.Pathname)
	assert.Len(t, env.objectKeys(t, "uploads/u1/my-documents/"), 3) // marker + 2 files
}

func TestCreateFile_Rejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.files.CreateFile(ctx, &wsSvc.CreateFileRequest{OwnerID: "u1", Name: "!!!"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.files.CreateFile(ctx, &wsSvc.CreateFileRequest{OwnerID: "u1", Name: "a.txt", ParentPath: "missing"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.files.CreateFile(ctx, &wsSvc.CreateFileRequest{OwnerID: "u1", Name: "a.txt", ParentPath: "../u2"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// Only the not-found attempt got far enough to bootstrap
	assert.Equal(t, 1, env.blobs.Len())
}

func TestCreateFile_ValidationBeforeStores(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.files.CreateFile(context.Background(), &wsSvc.CreateFileRequest{OwnerID: "u1", Name: ""})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, 0, env.blobs.Len())
}

func TestCreateFile_MetadataFailureLeavesListableOrphan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.bootstrap.EnsureDefaultFolder(ctx, "u1")
	require.NoError(t, err)

	failing := &failingFiles{FileRepository: env.stores.Files, putErr: errors.New("metadata down")}
	stores := env.stores
	stores.Files = failing
	svc := NewFileService(stores, env.bootstrap, discardLogger())

	_, err = svc.CreateFile(ctx, &wsSvc.CreateFileRequest{OwnerID: "u1", Name: "a.txt", Content: []byte("x")})
	var bse *domain.BackingStoreError
	require.True(t, errors.As(err, &bse))
	assert.Equal(t, domain.StoreMetadata, bse.Store)

	assert.Contains(t, env.relPaths(t, "u1"), "my-documents/a.txt")
}

func TestRenameFile_KeepsExtensionAndMovesRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "draft.md", "# hi")

	renamed, err := env.files.RenameFile(ctx, &wsSvc.RenameRequest{
		OwnerID:  "u1",
		Pathname: file.Pathname,
		NewName:  "final",
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/my-documents/final.md", renamed.Pathname)
	assert.Equal(t, "final.md", renamed.Name)
	assert.True(t, file.CreatedAt.Equal(renamed.CreatedAt))
	assert.True(t, strings.HasSuffix(renamed.URL, "/uploads/u1/my-documents/final.md"))

	_, err = env.stores.Files.Get(ctx, "u1", file.Pathname)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = env.blobs.Head(ctx, file.Pathname)
	assert.True(t, errors.Is(err, wsRepo.ErrBlobNotFound))

	_, body, err := env.files.ReadFile(ctx, "u1", renamed.Pathname)
	require.NoError(t, err)
	defer body.Close()
	data, _ := io.ReadAll(body)
	assert.Equal(t, "# hi", string(data))
}

func TestRenameFile_MoveToOtherFolder(t *testing.T) {
	env := newTestEnv(t)
	env.mkdir(t, "u1", "", "archive")
	file := env.upload(t, "u1", "", "a.txt", "x")

	moved, err := env.files.RenameFile(context.Background(), &wsSvc.RenameRequest{
		OwnerID:    "u1",
		Pathname:   file.Pathname,
		NewName:    "a.txt",
		ParentPath: strPtr("archive"),
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/archive/a.txt", moved.Pathname)
	assert.Equal(t, "archive/", moved.ParentPath)
}

func TestRenameFile_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.upload(t, "u1", "", "a.txt", "a")
	env.upload(t, "u1", "", "b.txt", "b")

	tests := []struct {
		name    string
		req     *wsSvc.RenameRequest
		wantErr error
	}{
		{
			name:    "onto existing file",
			req:     &wsSvc.RenameRequest{OwnerID: "u1", Pathname: a.Pathname, NewName: "b.txt"},
			wantErr: domain.ErrConflict,
		},
		{
			name:    "missing file",
			req:     &wsSvc.RenameRequest{OwnerID: "u1", Pathname: "uploads/u1/my-documents/nope.txt", NewName: "x"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "other user's namespace",
			req:     &wsSvc.RenameRequest{OwnerID: "u2", Pathname: a.Pathname, NewName: "x"},
			wantErr: domain.ErrScopeViolation,
		},
		{
			name:    "empty name",
			req:     &wsSvc.RenameRequest{OwnerID: "u1", Pathname: a.Pathname, NewName: "???"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "folder pathname",
			req:     &wsSvc.RenameRequest{OwnerID: "u1", Pathname: "uploads/u1/my-documents/", NewName: "x"},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.files.RenameFile(ctx, tt.req)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	// Nothing moved
	_, err := env.blobs.Head(ctx, a.Pathname)
	assert.NoError(t, err)
}

func TestRenameFile_UndoesCopyWhenSourceDeleteFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "a.txt", "x")

	env.blobs.SetFault(func(op, pathname string) error {
		if op == "delete" && pathname == file.Pathname {
			return errors.New("throttled")
		}
		return nil
	})

	_, err := env.files.RenameFile(ctx, &wsSvc.RenameRequest{OwnerID: "u1", Pathname: file.Pathname, NewName: "b.txt"})
	assert.True(t, errors.Is(err, domain.ErrBackingStore))

	env.blobs.SetFault(nil)
	assert.Equal(t, []string{"uploads/u1/my-documents/", file.Pathname}, env.objectKeys(t, "uploads/u1/"))
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "a.txt", "x")

	require.NoError(t, env.files.DeleteFile(ctx, "u1", file.Pathname))
	_, err := env.stores.Files.Get(ctx, "u1", file.Pathname)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NotContains(t, env.relPaths(t, "u1"), "my-documents/a.txt")

	err = env.files.DeleteFile(ctx, "u1", file.Pathname)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = env.files.DeleteFile(ctx, "u2", file.Pathname)
	assert.True(t, errors.Is(err, domain.ErrScopeViolation))
}

func TestDeleteFile_CleansDanglingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "a.txt", "x")
	require.NoError(t, env.blobs.Delete(ctx, file.Pathname))

	require.NoError(t, env.files.DeleteFile(ctx, "u1", file.Pathname))
	_, err := env.stores.Files.Get(ctx, "u1", file.Pathname)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReplaceFileContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, "u1", "", "a.txt", "old")

	updated, err := env.files.ReplaceFileContent(ctx, &wsSvc.ReplaceContentRequest{
		OwnerID:  "u1",
		Pathname: file.Pathname,
		Content:  []byte("brand new"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), updated.Size)
	assert.Equal(t, file.ContentType, updated.ContentType)

	_, err = env.files.ReplaceFileContent(ctx, &wsSvc.ReplaceContentRequest{
		OwnerID:  "u1",
		Pathname: "uploads/u1/my-documents/missing.txt",
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// failingFiles fails every Put
type failingFiles struct {
	wsRepo.FileRepository
	putErr error
}

func (f *failingFiles) Put(ctx context.Context, file *models.File) error {
	return f.putErr
}
