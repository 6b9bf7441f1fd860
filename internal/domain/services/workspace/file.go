package workspace

import (
	"context"
	"io"

	"filespace/internal/domain/models/workspace"
)

// FileService handles file business logic
type FileService interface {
	// CreateFile writes a new file under a parent folder. A taken name gets a
	// timestamp token so the create never overwrites.
	CreateFile(ctx context.Context, req *CreateFileRequest) (*workspace.File, error)

	// RenameFile renames a file and optionally moves it to another parent folder
	RenameFile(ctx context.Context, req *RenameRequest) (*workspace.File, error)

	// DeleteFile removes the object and then its record
	DeleteFile(ctx context.Context, ownerID, pathname string) error

	// ReadFile opens a file's content. The caller closes the reader.
	ReadFile(ctx context.Context, ownerID, pathname string) (*workspace.File, io.ReadCloser, error)

	// ReplaceFileContent overwrites the content of an existing file
	ReplaceFileContent(ctx context.Context, req *ReplaceContentRequest) (*workspace.File, error)
}

// CreateFileRequest represents a file upload
type CreateFileRequest struct {
	OwnerID     string  `json:"-"`
	Name        string  `json:"name"`
	ParentPath  string  `json:"parentPath"` // relative folder path, "" for the default folder
	DocType     *string `json:"docType,omitempty"`
	ContentType string  `json:"contentType,omitempty"` // sniffed from content when empty
	Content     []byte  `json:"-"`
}

// RenameRequest renames (and optionally moves) a file or folder
type RenameRequest struct {
	OwnerID    string  `json:"-"`
	Pathname   string  `json:"pathname"`
	NewName    string  `json:"newName"`
	ParentPath *string `json:"parentPath,omitempty"` // move target; nil keeps the current parent
}

// DeleteRequest identifies a file or folder to delete
type DeleteRequest struct {
	Pathname string `json:"pathname"`
}

// ReplaceContentRequest represents a content overwrite
type ReplaceContentRequest struct {
	OwnerID     string
	Pathname    string
	ContentType string
	Content     []byte
}
