package workspace

import (
	"context"

	"filespace/internal/domain/models/workspace"
)

// DocumentService creates typed documents from templates and reads or
// replaces their content by id
type DocumentService interface {
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*workspace.File, error)
	GetDocument(ctx context.Context, ownerID, id string) (*Document, error)
	ReplaceDocument(ctx context.Context, req *ReplaceDocumentRequest) (*workspace.File, error)
}

// CreateDocumentRequest represents a typed document creation request
type CreateDocumentRequest struct {
	OwnerID    string  `json:"-"`
	Name       string  `json:"name"`
	DocType    string  `json:"docType"`
	ParentPath string  `json:"parentPath"`
	Content    *string `json:"content,omitempty"` // overrides the template's initial content
}

// ReplaceDocumentRequest represents a document content overwrite
type ReplaceDocumentRequest struct {
	OwnerID     string `json:"-"`
	ID          string `json:"-"`
	Content     string `json:"content"`
	ContentType string `json:"contentType,omitempty"`
}

// Document is a file record together with its content
type Document struct {
	ID      string          `json:"id"`
	File    *workspace.File `json:"file"`
	Content string          `json:"content"`
}
