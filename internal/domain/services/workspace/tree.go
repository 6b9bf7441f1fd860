package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// TreeService builds the merged view of both stores
type TreeService interface {
	// ListTree returns every file and folder of the owner, sorted by relative path
	ListTree(ctx context.Context, ownerID string) ([]workspace.TreeItem, error)

	// Repair reconciles records with the objects that actually exist
	Repair(ctx context.Context, ownerID string) (*workspace.RepairReport, error)
}

// Bootstrapper guarantees the default folder exists
type Bootstrapper interface {
	EnsureDefaultFolder(ctx context.Context, ownerID string) (*workspace.Folder, error)
}
