package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// MetadataBatch collects the record writes of a cascade so they can be
// committed together. Deletes are applied before puts.
type MetadataBatch struct {
	OwnerID       string
	PutFiles      []workspace.File
	PutFolders    []workspace.Folder
	DeleteFiles   []string // pathnames
	DeleteFolders []string // pathnames
}

// Len returns the number of operations in the batch
func (b *MetadataBatch) Len() int {
	return len(b.PutFiles) + len(b.PutFolders) + len(b.DeleteFiles) + len(b.DeleteFolders)
}

// BatchWriter commits a MetadataBatch as one unit where the store supports it
type BatchWriter interface {
	CommitBatch(ctx context.Context, batch *MetadataBatch) error
}
