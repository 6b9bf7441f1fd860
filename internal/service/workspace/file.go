package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
)

// maxNameAttempts bounds the search for a free timestamped name
const maxNameAttempts = 5

type fileService struct {
	stores    Stores
	bootstrap wsSvc.Bootstrapper
	logger    *slog.Logger
}

// NewFileService creates a new file service
func NewFileService(stores Stores, bootstrap wsSvc.Bootstrapper, logger *slog.Logger) wsSvc.FileService {
	return &fileService{
		stores:    stores,
		bootstrap: bootstrap,
		logger:    logger,
	}
}

// CreateFile writes the object first and the record second. If the record
// write fails the object stays behind as an orphan: listing still shows it
// and Repair recreates the record.
func (s *fileService) CreateFile(ctx context.Context, req *wsSvc.CreateFileRequest) (*models.File, error) {
	if err := validateCreateFileRequest(req); err != nil {
		return nil, err
	}
	prefix, err := NamespacePrefix(req.OwnerID)
	if err != nil {
		return nil, err
	}
	name, err := sanitizeName(req.Name)
	if err != nil {
		return nil, err
	}
	parentRel := DefaultFolderPath
	if strings.Trim(req.ParentPath, "/ ") != "" {
		if parentRel, err = NormalizeParentPath(req.ParentPath); err != nil {
			return nil, err
		}
	}
	if err := checkPathLength(prefix + parentRel + name); err != nil {
		return nil, err
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, req.OwnerID); err != nil {
		return nil, err
	}
	if err := requireFolder(ctx, s.stores, req.OwnerID, prefix+parentRel); err != nil {
		return nil, err
	}

	pathname, err := s.freePathname(ctx, prefix+parentRel, name)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(req.Content).String()
	}

	blob, err := s.stores.Blobs.Put(ctx, pathname, bytes.NewReader(req.Content), int64(len(req.Content)),
		contentType, wsRepo.PutOptions{IfNotExists: true})
	if errors.Is(err, wsRepo.ErrBlobExists) {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("file %q was created concurrently", pathname),
			ResourceType: "file",
			Pathname:     pathname,
		}
	}
	if err != nil {
		return nil, domain.NewBlobError("put", pathname, err)
	}

	now := nowUTC()
	file := newFileRecord(req.OwnerID, prefix, blob, now)
	file.CreatedAt = now
	file.DocType = req.DocType
	if err := s.stores.Files.Put(ctx, file); err != nil {
		s.logger.Warn("file record write failed, object left as orphan",
			"owner_id", req.OwnerID,
			"pathname", pathname,
			"error", err,
		)
		return nil, domain.NewMetadataError("put", pathname, err)
	}

	s.logger.Info("file created",
		"owner_id", req.OwnerID,
		"pathname", pathname,
		"size", file.Size,
	)
	return file, nil
}

// freePathname returns dir+name, or a timestamped variant
// ("name-<unixmillis>.ext") when that pathname is already taken.
func (s *fileService) freePathname(ctx context.Context, dir, name string) (string, error) {
	candidate := dir + name
	_, taken, err := blobExists(ctx, s.stores.Blobs, candidate)
	if err != nil || !taken {
		return candidate, err
	}

	base, ext := SplitExt(name)
	millis := nowUTC().UnixMilli()
	for i := 0; i < maxNameAttempts; i++ {
		candidate = dir + base + "-" + strconv.FormatInt(millis+int64(i), 10) + ext
		_, taken, err = blobExists(ctx, s.stores.Blobs, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, checkPathLength(candidate)
		}
	}
	return "", &domain.ConflictError{
		Message:      fmt.Sprintf("no free name for %q", dir+name),
		ResourceType: "file",
		Pathname:     dir + name,
	}
}

// RenameFile moves the object (copy, then delete the source) and then
// moves the record (write new, then delete old).
func (s *fileService) RenameFile(ctx context.Context, req *wsSvc.RenameRequest) (*models.File, error) {
	if err := validateRenameRequest(req); err != nil {
		return nil, err
	}
	rel, err := CheckScope(req.OwnerID, req.Pathname)
	if err != nil {
		return nil, err
	}
	if IsFolderPath(rel) {
		return nil, &domain.ValidationError{Message: "pathname names a folder, not a file"}
	}

	name, err := sanitizeName(req.NewName)
	if err != nil {
		return nil, err
	}
	if _, ext := SplitExt(name); ext == "" {
		_, oldExt := SplitExt(LeafName(rel))
		name += oldExt
	}

	parentRel := ParentPath(rel)
	if req.ParentPath != nil {
		if parentRel, err = NormalizeParentPath(*req.ParentPath); err != nil {
			return nil, err
		}
	}

	prefix, _ := NamespacePrefix(req.OwnerID)
	newPathname := prefix + parentRel + name
	if err := checkPathLength(newPathname); err != nil {
		return nil, err
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	src, ok, err := blobExists(ctx, s.stores.Blobs, req.Pathname)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %q not found", req.Pathname)}
	}

	record, err := s.loadRecord(ctx, req.OwnerID, prefix, src)
	if err != nil {
		return nil, err
	}
	if newPathname == req.Pathname {
		return record, nil
	}

	if parentRel != ParentPath(rel) {
		if err := requireFolder(ctx, s.stores, req.OwnerID, prefix+parentRel); err != nil {
			return nil, err
		}
	}
	_, taken, err := blobExists(ctx, s.stores.Blobs, newPathname)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("file %q already exists", newPathname),
			ResourceType: "file",
			Pathname:     newPathname,
		}
	}

	moved, err := s.stores.Blobs.Copy(ctx, req.Pathname, newPathname)
	if err != nil {
		return nil, domain.NewBlobError("copy", req.Pathname, err)
	}
	if err := s.stores.Blobs.Delete(ctx, req.Pathname); err != nil {
		// Undo the copy so the rename can be re-issued cleanly
		if cerr := s.stores.Blobs.Delete(ctx, newPathname); cerr != nil {
			s.logger.Warn("failed to remove copy after rename failure",
				"pathname", newPathname,
				"error", cerr,
			)
		}
		return nil, domain.NewBlobError("delete", req.Pathname, err)
	}

	renamed := *record
	renamed.Pathname = newPathname
	renamed.RelativePath = parentRel + name
	renamed.ParentPath = parentRel
	renamed.Name = name
	renamed.UpdatedAt = nowUTC()
	applyBlob(&renamed, moved)

	if err := s.stores.Files.Put(ctx, &renamed); err != nil {
		return nil, domain.NewMetadataError("put", newPathname, err)
	}
	if err := s.stores.Files.Delete(ctx, req.OwnerID, req.Pathname); err != nil {
		// Stale record has no object and is dropped by listing
		s.logger.Warn("failed to delete old file record",
			"pathname", req.Pathname,
			"error", err,
		)
	}

	s.logger.Info("file renamed",
		"owner_id", req.OwnerID,
		"from", req.Pathname,
		"to", newPathname,
	)
	return &renamed, nil
}

// DeleteFile removes the object, then the record. A record whose object is
// already gone is cleaned up rather than reported as missing, which lets a
// half-finished delete be completed by re-issuing it.
func (s *fileService) DeleteFile(ctx context.Context, ownerID, pathname string) error {
	rel, err := CheckScope(ownerID, pathname)
	if err != nil {
		return err
	}
	if IsFolderPath(rel) {
		return &domain.ValidationError{Message: "pathname names a folder, not a file"}
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, ownerID); err != nil {
		return err
	}

	_, ok, err := blobExists(ctx, s.stores.Blobs, pathname)
	if err != nil {
		return err
	}
	if !ok {
		if _, rerr := s.stores.Files.Get(ctx, ownerID, pathname); rerr != nil {
			if errors.Is(rerr, domain.ErrNotFound) {
				return &domain.NotFoundError{Message: fmt.Sprintf("file %q not found", pathname)}
			}
			return domain.NewMetadataError("get", pathname, rerr)
		}
	} else if err := s.stores.Blobs.Delete(ctx, pathname); err != nil {
		return domain.NewBlobError("delete", pathname, err)
	}

	if err := s.stores.Files.Delete(ctx, ownerID, pathname); err != nil {
		s.logger.Warn("failed to delete file record",
			"owner_id", ownerID,
			"pathname", pathname,
			"error", err,
		)
	}

	s.logger.Info("file deleted", "owner_id", ownerID, "pathname", pathname)
	return nil
}

// ReadFile opens the object and returns it with its record
func (s *fileService) ReadFile(ctx context.Context, ownerID, pathname string) (*models.File, io.ReadCloser, error) {
	rel, err := CheckScope(ownerID, pathname)
	if err != nil {
		return nil, nil, err
	}
	if IsFolderPath(rel) {
		return nil, nil, &domain.ValidationError{Message: "pathname names a folder, not a file"}
	}

	body, blob, err := s.stores.Blobs.Get(ctx, pathname)
	if errors.Is(err, wsRepo.ErrBlobNotFound) {
		return nil, nil, &domain.NotFoundError{Message: fmt.Sprintf("file %q not found", pathname)}
	}
	if err != nil {
		return nil, nil, domain.NewBlobError("get", pathname, err)
	}

	prefix, _ := NamespacePrefix(ownerID)
	record, err := s.loadRecord(ctx, ownerID, prefix, blob)
	if err != nil {
		body.Close()
		return nil, nil, err
	}
	return record, body, nil
}

// ReplaceFileContent overwrites the object and refreshes the record
func (s *fileService) ReplaceFileContent(ctx context.Context, req *wsSvc.ReplaceContentRequest) (*models.File, error) {
	rel, err := CheckScope(req.OwnerID, req.Pathname)
	if err != nil {
		return nil, err
	}
	if IsFolderPath(rel) {
		return nil, &domain.ValidationError{Message: "pathname names a folder, not a file"}
	}
	if len(req.Content) > config.MaxUploadBytes {
		return nil, &domain.ValidationError{Message: "content exceeds upload limit"}
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	current, ok, err := blobExists(ctx, s.stores.Blobs, req.Pathname)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("file %q not found", req.Pathname)}
	}

	prefix, _ := NamespacePrefix(req.OwnerID)
	record, err := s.loadRecord(ctx, req.OwnerID, prefix, current)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = record.ContentType
	}
	if contentType == "" {
		contentType = mimetype.Detect(req.Content).String()
	}

	blob, err := s.stores.Blobs.Put(ctx, req.Pathname, bytes.NewReader(req.Content), int64(len(req.Content)),
		contentType, wsRepo.PutOptions{})
	if err != nil {
		return nil, domain.NewBlobError("put", req.Pathname, err)
	}

	applyBlob(record, blob)
	record.UpdatedAt = nowUTC()
	if err := s.stores.Files.Put(ctx, record); err != nil {
		return nil, domain.NewMetadataError("put", req.Pathname, err)
	}
	return record, nil
}

// loadRecord returns the file record for an object, or one built from the
// object's attributes when the record is missing.
func (s *fileService) loadRecord(ctx context.Context, ownerID, prefix string, blob *models.Blob) (*models.File, error) {
	record, err := s.stores.Files.Get(ctx, ownerID, blob.Pathname)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewMetadataError("get", blob.Pathname, err)
	}
	return newFileRecord(ownerID, prefix, blob, nowUTC()), nil
}

func validateCreateFileRequest(req *wsSvc.CreateFileRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength*2)),
		validation.Field(&req.ParentPath, validation.Length(0, config.MaxPathLength)),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if len(req.Content) > config.MaxUploadBytes {
		return &domain.ValidationError{Message: "content exceeds upload limit"}
	}
	return nil
}

func validateRenameRequest(req *wsSvc.RenameRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Pathname, validation.Required, validation.Length(1, config.MaxPathLength)),
		validation.Field(&req.NewName, validation.Required, validation.Length(1, config.MaxNameLength*2)),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}
