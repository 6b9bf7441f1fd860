package workspace

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
	"filespace/internal/templates"
)

type documentService struct {
	files     wsSvc.FileService
	templates *templates.Registry
	logger    *slog.Logger
}

// NewDocumentService creates a new document service. Documents are files
// created from a template; all storage goes through the file service.
func NewDocumentService(files wsSvc.FileService, registry *templates.Registry, logger *slog.Logger) wsSvc.DocumentService {
	return &documentService{
		files:     files,
		templates: registry,
		logger:    logger,
	}
}

// CreateDocument instantiates the template for req.DocType. The template's
// extension is appended when the name has none.
func (s *documentService) CreateDocument(ctx context.Context, req *wsSvc.CreateDocumentRequest) (*models.File, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength*2)),
		validation.Field(&req.DocType, validation.Required),
	)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	tmpl, ok := s.templates.Get(req.DocType)
	if !ok {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown docType %q", req.DocType)}
	}

	name, err := sanitizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if _, ext := SplitExt(name); ext == "" {
		name += tmpl.Extension
	}

	content := tmpl.Content
	if req.Content != nil {
		content = *req.Content
	}

	docType := tmpl.DocType
	return s.files.CreateFile(ctx, &wsSvc.CreateFileRequest{
		OwnerID:     req.OwnerID,
		Name:        name,
		ParentPath:  req.ParentPath,
		DocType:     &docType,
		ContentType: tmpl.ContentType,
		Content:     []byte(content),
	})
}

// GetDocument reads a document by id
func (s *documentService) GetDocument(ctx context.Context, ownerID, id string) (*wsSvc.Document, error) {
	pathname, err := DecodeID(id)
	if err != nil {
		return nil, err
	}

	file, body, err := s.files.ReadFile(ctx, ownerID, pathname)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, config.MaxUploadBytes+1))
	if err != nil {
		return nil, domain.NewBlobError("get", pathname, err)
	}
	if len(data) > config.MaxUploadBytes {
		return nil, &domain.ValidationError{Message: "document is too large to return inline"}
	}

	return &wsSvc.Document{
		ID:      id,
		File:    file,
		Content: string(data),
	}, nil
}

// ReplaceDocument overwrites a document's content
func (s *documentService) ReplaceDocument(ctx context.Context, req *wsSvc.ReplaceDocumentRequest) (*models.File, error) {
	pathname, err := DecodeID(req.ID)
	if err != nil {
		return nil, err
	}
	return s.files.ReplaceFileContent(ctx, &wsSvc.ReplaceContentRequest{
		OwnerID:     req.OwnerID,
		Pathname:    pathname,
		ContentType: req.ContentType,
		Content:     []byte(req.Content),
	})
}
