package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// FolderService handles folder business logic. Rename and delete cascade
// over every object and record under the folder prefix.
type FolderService interface {
	// CreateFolder creates a folder marker and its record
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*workspace.Folder, error)

	// RenameFolder renames (or moves) a folder with its whole subtree
	RenameFolder(ctx context.Context, req *RenameRequest) (*workspace.Folder, error)

	// DeleteFolder deletes a folder with its whole subtree
	DeleteFolder(ctx context.Context, ownerID, pathname string) error
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	OwnerID    string `json:"-"`
	Name       string `json:"name"`
	ParentPath string `json:"parentPath"` // relative folder path, "" for the namespace root
}
