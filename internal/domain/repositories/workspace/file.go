package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// FileRepository defines metadata access for file records. Records are keyed
// by the encoded pathname; every lookup is also scoped by owner so a record
// owned by someone else reads as not found.
type FileRepository interface {
	// Get retrieves a file record by pathname
	Get(ctx context.Context, ownerID, pathname string) (*workspace.File, error)

	// Put creates or replaces a file record
	Put(ctx context.Context, file *workspace.File) error

	// Delete removes a file record (no error if it is already gone)
	Delete(ctx context.Context, ownerID, pathname string) error

	// ListByOwner returns every file record of an owner
	ListByOwner(ctx context.Context, ownerID string) ([]workspace.File, error)
}
