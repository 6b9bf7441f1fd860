package workspace

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
)

type treeService struct {
	stores    Stores
	bootstrap wsSvc.Bootstrapper
	logger    *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(stores Stores, bootstrap wsSvc.Bootstrapper, logger *slog.Logger) wsSvc.TreeService {
	return &treeService{
		stores:    stores,
		bootstrap: bootstrap,
		logger:    logger,
	}
}

// snapshot is one read of both stores for an owner
type snapshot struct {
	prefix  string
	blobs   []models.Blob
	files   map[string]models.File   // by pathname
	folders map[string]models.Folder // by pathname
}

func (s *treeService) load(ctx context.Context, ownerID string) (*snapshot, error) {
	prefix, err := NamespacePrefix(ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, ownerID); err != nil {
		return nil, err
	}

	blobs, err := listAll(ctx, s.stores.Blobs, prefix)
	if err != nil {
		return nil, domain.NewBlobError("list", prefix, err)
	}
	files, err := s.stores.Files.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.NewMetadataError("list", prefix, err)
	}
	folders, err := s.stores.Folders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.NewMetadataError("list", prefix, err)
	}

	snap := &snapshot{
		prefix:  prefix,
		blobs:   blobs,
		files:   make(map[string]models.File, len(files)),
		folders: make(map[string]models.Folder, len(folders)),
	}
	for _, f := range files {
		snap.files[f.Pathname] = f
	}
	for _, f := range folders {
		if strings.HasPrefix(f.Pathname, prefix) {
			snap.folders[f.Pathname] = f
		}
	}
	return snap, nil
}

// ListTree merges the object listing with the records. Objects decide what
// exists: a file record without an object is dropped, an object without a
// record is listed with attributes taken from the object. Every ancestor
// folder without a record is synthesized as a derived folder.
func (s *treeService) ListTree(ctx context.Context, ownerID string) ([]models.TreeItem, error) {
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	items := make(map[string]models.TreeItem, len(snap.blobs)+len(snap.folders))
	for _, f := range snap.folders {
		items[f.Pathname] = folderItem(&f)
	}

	for i := range snap.blobs {
		blob := &snap.blobs[i]
		if blob.IsFolderMarker() {
			continue
		}
		rec, ok := snap.files[blob.Pathname]
		if !ok {
			rec = *newFileRecord(ownerID, snap.prefix, blob, blob.UploadedAt)
		}
		items[blob.Pathname] = fileItem(&rec, blob)
	}

	// Markers and ancestors become derived folders unless a record exists
	for i := range snap.blobs {
		rel := strings.TrimPrefix(snap.blobs[i].Pathname, snap.prefix)
		if !snap.blobs[i].IsFolderMarker() {
			rel = ParentPath(rel)
		}
		for ; rel != ""; rel = ParentPath(rel) {
			pathname := snap.prefix + rel
			if _, ok := items[pathname]; ok {
				continue
			}
			items[pathname] = derivedFolderItem(pathname, rel)
		}
	}

	tree := make([]models.TreeItem, 0, len(items))
	for _, item := range items {
		tree = append(tree, item)
	}
	sort.Slice(tree, func(i, j int) bool {
		if tree[i].RelativePath != tree[j].RelativePath {
			return tree[i].RelativePath < tree[j].RelativePath
		}
		return tree[i].Kind == models.ItemKindFolder && tree[j].Kind != models.ItemKindFolder
	})

	s.logger.Debug("tree listed",
		"owner_id", ownerID,
		"items", len(tree),
		"objects", len(snap.blobs),
	)
	return tree, nil
}

func fileItem(rec *models.File, blob *models.Blob) models.TreeItem {
	uploaded := blob.UploadedAt
	created, updated := rec.CreatedAt, rec.UpdatedAt
	contentType := blob.ContentType
	if contentType == "" {
		contentType = rec.ContentType
	}
	return models.TreeItem{
		Kind:         models.ItemKindFile,
		Pathname:     blob.Pathname,
		RelativePath: rec.RelativePath,
		ParentPath:   rec.ParentPath,
		Name:         rec.Name,
		DocType:      rec.DocType,
		ContentType:  contentType,
		Size:         blob.Size,
		URL:          blob.URL,
		DownloadURL:  blob.DownloadURL,
		UploadedAt:   &uploaded,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

func folderItem(f *models.Folder) models.TreeItem {
	created, updated := f.CreatedAt, f.UpdatedAt
	return models.TreeItem{
		Kind:         models.ItemKindFolder,
		Pathname:     f.Pathname,
		RelativePath: f.RelativePath,
		ParentPath:   f.ParentPath,
		Name:         f.Name,
		IsDefault:    f.IsDefault,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

func derivedFolderItem(pathname, rel string) models.TreeItem {
	return models.TreeItem{
		Kind:         models.ItemKindFolder,
		Pathname:     pathname,
		RelativePath: rel,
		ParentPath:   ParentPath(rel),
		Name:         LeafName(rel),
		Derived:      true,
	}
}
