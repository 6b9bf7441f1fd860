package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// FolderRepository defines metadata access for folder records
type FolderRepository interface {
	// Get retrieves a folder record by pathname (with trailing slash)
	Get(ctx context.Context, ownerID, pathname string) (*workspace.Folder, error)

	// Put creates or replaces a folder record
	Put(ctx context.Context, folder *workspace.Folder) error

	// Merge upserts a folder record, overwriting only IsDefault, Name and
	// UpdatedAt when the record already exists. Concurrent callers converge
	// on the last write. Returns the stored record.
	Merge(ctx context.Context, folder *workspace.Folder) (*workspace.Folder, error)

	// Delete removes a folder record (no error if it is already gone)
	Delete(ctx context.Context, ownerID, pathname string) error

	// ListByOwner returns every folder record of an owner
	ListByOwner(ctx context.Context, ownerID string) ([]workspace.Folder, error)
}
