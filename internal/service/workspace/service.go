package workspace

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
)

// Stores bundles the backing stores every workspace operation touches
type Stores struct {
	Blobs   wsRepo.BlobStore
	Files   wsRepo.FileRepository
	Folders wsRepo.FolderRepository
	Batch   wsRepo.BatchWriter
}

// CascadeConfig bounds the per-object work of folder rename and delete
type CascadeConfig struct {
	Concurrency  int           // parallel object operations per cascade
	MaxAttempts  int           // attempts per object operation
	OpsPerSecond float64       // shared pacing across all cascades, <= 0 disables
	BaseBackoff  time.Duration // first retry delay, doubled per attempt
}

// NewCascadeConfig derives cascade bounds from the service configuration
func NewCascadeConfig(cfg *config.Config) CascadeConfig {
	return CascadeConfig{
		Concurrency:  cfg.CascadeConcurrency,
		MaxAttempts:  cfg.CascadeMaxAttempts,
		OpsPerSecond: cfg.BlobOpsPerSecond,
		BaseBackoff:  100 * time.Millisecond,
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// listAll enumerates every object under prefix, following the cursor until
// the store reports the last page.
func listAll(ctx context.Context, blobs wsRepo.BlobStore, prefix string) ([]models.Blob, error) {
	var all []models.Blob
	cursor := ""
	for {
		page, err := blobs.List(ctx, prefix, cursor, config.ListPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Blobs...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// folderExists reports whether a folder is explicit (record) or derived
// (at least one object under its prefix). The namespace root always exists.
func folderExists(ctx context.Context, stores Stores, ownerID, pathname string) (bool, error) {
	prefix, err := NamespacePrefix(ownerID)
	if err != nil {
		return false, err
	}
	if pathname == prefix {
		return true, nil
	}

	_, err = stores.Folders.Get(ctx, ownerID, pathname)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, domain.NewMetadataError("get", pathname, err)
	}

	page, err := stores.Blobs.List(ctx, pathname, "", 1)
	if err != nil {
		return false, domain.NewBlobError("list", pathname, err)
	}
	return len(page.Blobs) > 0, nil
}

// requireFolder returns NotFoundError unless the folder exists
func requireFolder(ctx context.Context, stores Stores, ownerID, pathname string) error {
	ok, err := folderExists(ctx, stores, ownerID, pathname)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", pathname)}
	}
	return nil
}

// blobExists distinguishes a missing object from a store failure
func blobExists(ctx context.Context, blobs wsRepo.BlobStore, pathname string) (*models.Blob, bool, error) {
	blob, err := blobs.Head(ctx, pathname)
	if err == nil {
		return blob, true, nil
	}
	if errors.Is(err, wsRepo.ErrBlobNotFound) {
		return nil, false, nil
	}
	return nil, false, domain.NewBlobError("head", pathname, err)
}

// newFileRecord builds a file record from the object it describes
func newFileRecord(ownerID, prefix string, blob *models.Blob, now time.Time) *models.File {
	rel := strings.TrimPrefix(blob.Pathname, prefix)
	created := blob.UploadedAt
	if created.IsZero() {
		created = now
	}
	return &models.File{
		OwnerID:      ownerID,
		Pathname:     blob.Pathname,
		RelativePath: rel,
		ParentPath:   ParentPath(rel),
		Name:         LeafName(rel),
		ContentType:  guessContentType(blob),
		Size:         blob.Size,
		URL:          blob.URL,
		DownloadURL:  blob.DownloadURL,
		CreatedAt:    created,
		UpdatedAt:    now,
	}
}

// guessContentType falls back to the extension when the object carries no
// content type, which is the case for S3 listings.
func guessContentType(blob *models.Blob) string {
	if blob.ContentType != "" {
		return blob.ContentType
	}
	_, ext := SplitExt(LeafName(blob.Pathname))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// newFolderRecord builds a folder record for a relative folder path
func newFolderRecord(ownerID, prefix, rel string, now time.Time) *models.Folder {
	return &models.Folder{
		OwnerID:      ownerID,
		Pathname:     prefix + rel,
		RelativePath: rel,
		ParentPath:   ParentPath(rel),
		Name:         LeafName(rel),
		IsDefault:    rel == DefaultFolderPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// applyBlob refreshes the object-derived attributes of a file record
func applyBlob(file *models.File, blob *models.Blob) {
	if blob.ContentType != "" {
		file.ContentType = blob.ContentType
	}
	file.Size = blob.Size
	file.URL = blob.URL
	file.DownloadURL = blob.DownloadURL
}

// checkPathLength rejects pathnames the object store cannot hold
func checkPathLength(pathname string) error {
	if len(pathname) > config.MaxPathLength {
		return &domain.ValidationError{
			Message: fmt.Sprintf("pathname exceeds %d bytes", config.MaxPathLength),
		}
	}
	return nil
}
