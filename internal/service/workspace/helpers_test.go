package workspace

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"filespace/internal/blobstore/memory"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
	"filespace/internal/repository/badger"
	badgerRepo "filespace/internal/repository/badger/workspace"
	"filespace/internal/templates"

	"github.com/stretchr/testify/require"
)

// testEnv wires every service against an in-memory blob store and an
// in-memory badger metadata store.
type testEnv struct {
	blobs     *memory.Store
	stores    Stores
	bootstrap wsSvc.Bootstrapper
	files     wsSvc.FileService
	folders   wsSvc.FolderService
	tree      wsSvc.TreeService
	documents wsSvc.DocumentService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...memory.Option) *testEnv {
	t.Helper()

	logger := discardLogger()
	db, err := badger.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repoCfg := &badger.RepositoryConfig{DB: db, Logger: logger}
	blobs := memory.NewStore(opts...)
	stores := Stores{
		Blobs:   blobs,
		Files:   badgerRepo.NewFileRepository(repoCfg),
		Folders: badgerRepo.NewFolderRepository(repoCfg),
		Batch:   badgerRepo.NewBatchWriter(repoCfg),
	}

	registry, err := templates.NewRegistry()
	require.NoError(t, err)

	bootstrap := NewBootstrapper(stores, logger)
	files := NewFileService(stores, bootstrap, logger)
	cascadeCfg := CascadeConfig{
		Concurrency: 4,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
	}

	return &testEnv{
		blobs:     blobs,
		stores:    stores,
		bootstrap: bootstrap,
		files:     files,
		folders:   NewFolderService(stores, bootstrap, cascadeCfg, logger),
		tree:      NewTreeService(stores, bootstrap, logger),
		documents: NewDocumentService(files, registry, logger),
	}
}

func (e *testEnv) mkdir(t *testing.T, owner, parent, name string) *models.Folder {
	t.Helper()
	f, err := e.folders.CreateFolder(context.Background(), &wsSvc.CreateFolderRequest{
		OwnerID:    owner,
		Name:       name,
		ParentPath: parent,
	})
	require.NoError(t, err)
	return f
}

func (e *testEnv) upload(t *testing.T, owner, parent, name, content string) *models.File {
	t.Helper()
	f, err := e.files.CreateFile(context.Background(), &wsSvc.CreateFileRequest{
		OwnerID:    owner,
		Name:       name,
		ParentPath: parent,
		Content:    []byte(content),
	})
	require.NoError(t, err)
	return f
}

// putRaw writes an object straight into the blob store, bypassing records
func (e *testEnv) putRaw(t *testing.T, pathname, content string) {
	t.Helper()
	_, err := e.blobs.Put(context.Background(), pathname, strings.NewReader(content), int64(len(content)),
		"text/plain", wsRepo.PutOptions{})
	require.NoError(t, err)
}

// relPaths lists the tree and returns every relative path, sorted
func (e *testEnv) relPaths(t *testing.T, owner string) []string {
	t.Helper()
	items, err := e.tree.ListTree(context.Background(), owner)
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RelativePath)
	}
	sort.Strings(out)
	return out
}

// objectKeys returns every object key under prefix
func (e *testEnv) objectKeys(t *testing.T, prefix string) []string {
	t.Helper()
	blobs, err := listAll(context.Background(), e.blobs, prefix)
	require.NoError(t, err)
	return blobPathnames(blobs)
}

// recordPaths returns every file and folder record pathname of an owner
func (e *testEnv) recordPaths(t *testing.T, owner string) []string {
	t.Helper()
	ctx := context.Background()
	files, err := e.stores.Files.ListByOwner(ctx, owner)
	require.NoError(t, err)
	folders, err := e.stores.Folders.ListByOwner(ctx, owner)
	require.NoError(t, err)

	var out []string
	for _, f := range files {
		out = append(out, f.Pathname)
	}
	for _, f := range folders {
		out = append(out, f.Pathname)
	}
	sort.Strings(out)
	return out
}

// under returns the entries of paths starting with prefix, with the prefix removed
func under(paths []string, prefix string) []string {
	var out []string
	for _, p := range paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, strings.TrimPrefix(p, prefix))
		}
	}
	sort.Strings(out)
	return out
}

func strPtr(s string) *string { return &s }
