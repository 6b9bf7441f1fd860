package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
)

type folderService struct {
	stores    Stores
	bootstrap wsSvc.Bootstrapper
	cascade   *cascader
	logger    *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	stores Stores,
	bootstrap wsSvc.Bootstrapper,
	cascadeCfg CascadeConfig,
	logger *slog.Logger,
) wsSvc.FolderService {
	return &folderService{
		stores:    stores,
		bootstrap: bootstrap,
		cascade:   newCascader(stores.Blobs, cascadeCfg, logger),
		logger:    logger,
	}
}

// CreateFolder writes the marker object and then the record. A folder that
// only exists as a prefix (derived) becomes explicit; an existing record is
// a conflict.
func (s *folderService) CreateFolder(ctx context.Context, req *wsSvc.CreateFolderRequest) (*models.Folder, error) {
	if err := validateCreateFolderRequest(req); err != nil {
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
	parentRel, err := NormalizeParentPath(req.ParentPath)
	if err != nil {
		return nil, err
	}
	rel := parentRel + name + "/"
	pathname := prefix + rel
	if err := checkPathLength(pathname); err != nil {
		return nil, err
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, req.OwnerID); err != nil {
		return nil, err
	}
	if err := requireFolder(ctx, s.stores, req.OwnerID, prefix+parentRel); err != nil {
		return nil, err
	}

	_, err = s.stores.Folders.Get(ctx, req.OwnerID, pathname)
	if err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("folder %q already exists", rel),
			ResourceType: "folder",
			Pathname:     pathname,
		}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewMetadataError("get", pathname, err)
	}

	_, err = s.stores.Blobs.Put(ctx, pathname, bytes.NewReader(nil), 0, FolderMarkerContentType,
		wsRepo.PutOptions{IfNotExists: true})
	if err != nil && !errors.Is(err, wsRepo.ErrBlobExists) {
		return nil, domain.NewBlobError("put", pathname, err)
	}

	folder := newFolderRecord(req.OwnerID, prefix, rel, nowUTC())
	if err := s.stores.Folders.Put(ctx, folder); err != nil {
		// The marker alone still lists as a derived folder
		return nil, domain.NewMetadataError("put", pathname, err)
	}

	s.logger.Info("folder created", "owner_id", req.OwnerID, "pathname", pathname)
	return folder, nil
}

// RenameFolder moves every object under the old prefix, then rewrites every
// record under it in one metadata batch. Objects are moved copy-before-delete
// and each move is idempotent, so re-issuing an interrupted rename resumes it.
func (s *folderService) RenameFolder(ctx context.Context, req *wsSvc.RenameRequest) (*models.Folder, error) {
	if err := validateRenameRequest(req); err != nil {
		return nil, err
	}
	rel, err := CheckScope(req.OwnerID, EnsureTrailingSlash(req.Pathname))
	if err != nil {
		return nil, err
	}
	name, err := sanitizeName(req.NewName)
	if err != nil {
		return nil, err
	}
	parentRel := ParentPath(rel)
	if req.ParentPath != nil {
		if parentRel, err = NormalizeParentPath(*req.ParentPath); err != nil {
			return nil, err
		}
	}
	newRel := parentRel + name + "/"
	if strings.HasPrefix(newRel, rel) && newRel != rel {
		return nil, &domain.ValidationError{Message: "a folder cannot be moved into itself"}
	}
	if rel == DefaultFolderPath {
		return nil, &domain.ProtectedResourceError{Pathname: rel}
	}

	prefix, _ := NamespacePrefix(req.OwnerID)
	oldPrefix := prefix + rel
	newPrefix := prefix + newRel
	if err := checkPathLength(newPrefix); err != nil {
		return nil, err
	}

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	op := newCascadeOp("rename", req.OwnerID, oldPrefix)

	// Step 1: enumerate the subtree
	blobs, err := listAll(ctx, s.stores.Blobs, oldPrefix)
	if err != nil {
		return nil, s.cascade.fail(op, 1, domain.NewBlobError("list", oldPrefix, err))
	}
	own, err := s.stores.Folders.Get(ctx, req.OwnerID, oldPrefix)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, s.cascade.fail(op, 1, domain.NewMetadataError("get", oldPrefix, err))
	}
	if len(blobs) == 0 && own == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", rel)}
	}
	if newRel == rel {
		if own != nil {
			return own, nil
		}
		return newFolderRecord(req.OwnerID, prefix, rel, nowUTC()), nil
	}

	if parentRel != ParentPath(rel) {
		if err := requireFolder(ctx, s.stores, req.OwnerID, prefix+parentRel); err != nil {
			return nil, err
		}
	}
	_, err = s.stores.Folders.Get(ctx, req.OwnerID, newPrefix)
	if err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("folder %q already exists", newRel),
			ResourceType: "folder",
			Pathname:     newPrefix,
		}
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewMetadataError("get", newPrefix, err)
	}
	if err := checkMoveTargets(ctx, s.stores.Blobs, blobs, oldPrefix, newPrefix); err != nil {
		return nil, err
	}
	s.cascade.logStep(op, 1, "enumerate", "objects", len(blobs), "to", newPrefix)

	// Step 2: move every object
	err = s.cascade.forEach(ctx, "move", blobPathnames(blobs), func(ctx context.Context, src string) error {
		return s.cascade.move(ctx, src, newPrefix+strings.TrimPrefix(src, oldPrefix))
	})
	if err != nil {
		return nil, s.cascade.fail(op, 2, err)
	}
	s.cascade.logStep(op, 2, "move objects", "objects", len(blobs))

	// Steps 3 and 4: rewrite records under the new prefix
	batch, renamed, err := s.renameBatch(ctx, req.OwnerID, prefix, oldPrefix, newPrefix)
	if err != nil {
		return nil, s.cascade.fail(op, 3, err)
	}
	s.cascade.logStep(op, 4, "rewrite records", "ops", batch.Len())

	// Step 5: commit
	if err := s.stores.Batch.CommitBatch(ctx, batch); err != nil {
		return nil, s.cascade.fail(op, 5, domain.NewMetadataError("commit", oldPrefix, err))
	}
	s.cascade.logStep(op, 5, "commit", "duration_ms", time.Since(op.started).Milliseconds())

	return renamed, nil
}

// renameBatch builds the metadata batch of a folder rename: every folder and
// file record at or under oldPrefix is deleted and re-put under newPrefix.
// The renamed folder always gets a record, even if it was derived before.
func (s *folderService) renameBatch(
	ctx context.Context,
	ownerID, prefix, oldPrefix, newPrefix string,
) (*wsRepo.MetadataBatch, *models.Folder, error) {
	folders, err := s.stores.Folders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, domain.NewMetadataError("list", oldPrefix, err)
	}
	files, err := s.stores.Files.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, domain.NewMetadataError("list", oldPrefix, err)
	}

	now := nowUTC()
	batch := &wsRepo.MetadataBatch{OwnerID: ownerID}

	renamedIdx := -1
	for _, f := range folders {
		if !strings.HasPrefix(f.Pathname, oldPrefix) {
			continue
		}
		moved := f
		relocate(&moved.Pathname, &moved.RelativePath, &moved.ParentPath, &moved.Name, prefix, oldPrefix, newPrefix)
		moved.UpdatedAt = now
		batch.DeleteFolders = append(batch.DeleteFolders, f.Pathname)
		batch.PutFolders = append(batch.PutFolders, moved)
		if f.Pathname == oldPrefix {
			renamedIdx = len(batch.PutFolders) - 1
		}
	}
	if renamedIdx < 0 {
		batch.PutFolders = append(batch.PutFolders,
			*newFolderRecord(ownerID, prefix, strings.TrimPrefix(newPrefix, prefix), now))
		renamedIdx = len(batch.PutFolders) - 1
	}

	for _, f := range files {
		if !strings.HasPrefix(f.Pathname, oldPrefix) {
			continue
		}
		moved := f
		relocate(&moved.Pathname, &moved.RelativePath, &moved.ParentPath, &moved.Name, prefix, oldPrefix, newPrefix)
		moved.URL = strings.Replace(f.URL, f.Pathname, moved.Pathname, 1)
		moved.DownloadURL = strings.Replace(f.DownloadURL, f.Pathname, moved.Pathname, 1)
		moved.UpdatedAt = now
		batch.DeleteFiles = append(batch.DeleteFiles, f.Pathname)
		batch.PutFiles = append(batch.PutFiles, moved)
	}

	renamed := batch.PutFolders[renamedIdx]
	return batch, &renamed, nil
}

// relocate rewrites the path fields of a record moving from oldPrefix to newPrefix
func relocate(pathname, relativePath, parentPath, name *string, prefix, oldPrefix, newPrefix string) {
	*pathname = newPrefix + strings.TrimPrefix(*pathname, oldPrefix)
	*relativePath = strings.TrimPrefix(*pathname, prefix)
	*parentPath = ParentPath(*relativePath)
	*name = LeafName(*relativePath)
}

// DeleteFolder removes every object under the prefix, then every record at
// or under it in one metadata batch.
func (s *folderService) DeleteFolder(ctx context.Context, ownerID, pathname string) error {
	rel, err := CheckScope(ownerID, EnsureTrailingSlash(pathname))
	if err != nil {
		return err
	}
	if rel == DefaultFolderPath {
		return &domain.ProtectedResourceError{Pathname: rel}
	}
	prefix, _ := NamespacePrefix(ownerID)
	folderPrefix := prefix + rel

	if _, err := s.bootstrap.EnsureDefaultFolder(ctx, ownerID); err != nil {
		return err
	}

	op := newCascadeOp("delete", ownerID, folderPrefix)

	// Step 1: enumerate the subtree
	blobs, err := listAll(ctx, s.stores.Blobs, folderPrefix)
	if err != nil {
		return s.cascade.fail(op, 1, domain.NewBlobError("list", folderPrefix, err))
	}

	// Step 2: collect records
	batch := &wsRepo.MetadataBatch{OwnerID: ownerID}
	folders, err := s.stores.Folders.ListByOwner(ctx, ownerID)
	if err != nil {
		return s.cascade.fail(op, 2, domain.NewMetadataError("list", folderPrefix, err))
	}
	for _, f := range folders {
		if strings.HasPrefix(f.Pathname, folderPrefix) {
			batch.DeleteFolders = append(batch.DeleteFolders, f.Pathname)
		}
	}
	files, err := s.stores.Files.ListByOwner(ctx, ownerID)
	if err != nil {
		return s.cascade.fail(op, 2, domain.NewMetadataError("list", folderPrefix, err))
	}
	for _, f := range files {
		if strings.HasPrefix(f.Pathname, folderPrefix) {
			batch.DeleteFiles = append(batch.DeleteFiles, f.Pathname)
		}
	}

	if len(blobs) == 0 && batch.Len() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", rel)}
	}
	s.cascade.logStep(op, 2, "enumerate", "objects", len(blobs), "records", batch.Len())

	// Step 3: bulk-delete objects
	if err := s.cascade.deleteAll(ctx, blobPathnames(blobs)); err != nil {
		return s.cascade.fail(op, 3, err)
	}
	s.cascade.logStep(op, 3, "delete objects", "objects", len(blobs))

	// Step 4: delete records
	if err := s.stores.Batch.CommitBatch(ctx, batch); err != nil {
		return s.cascade.fail(op, 4, domain.NewMetadataError("commit", folderPrefix, err))
	}
	s.cascade.logStep(op, 4, "commit", "duration_ms", time.Since(op.started).Milliseconds())
	return nil
}

func validateCreateFolderRequest(req *wsSvc.CreateFolderRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength*2)),
		validation.Field(&req.ParentPath, validation.Length(0, config.MaxPathLength)),
	)
	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}

// checkMoveTargets returns ConflictError when a derived folder already holds
// an object at a key the move would write. A byte-identical object is the
// copy left by an interrupted move of the same subtree, so it does not
// block re-issuing the rename. Folder markers are empty and never collide.
func checkMoveTargets(ctx context.Context, blobs wsRepo.BlobStore, src []models.Blob, oldPrefix, newPrefix string) error {
	existing, err := listAll(ctx, blobs, newPrefix)
	if err != nil {
		return domain.NewBlobError("list", newPrefix, err)
	}
	if len(existing) == 0 {
		return nil
	}
	taken := make(map[string]int64, len(existing))
	for i := range existing {
		taken[existing[i].Pathname] = existing[i].Size
	}

	for i := range src {
		if src[i].IsFolderMarker() {
			continue
		}
		dst := newPrefix + strings.TrimPrefix(src[i].Pathname, oldPrefix)
		size, ok := taken[dst]
		if !ok {
			continue
		}
		same := size == src[i].Size
		if same {
			if same, err = sameContent(ctx, blobs, src[i].Pathname, dst); err != nil {
				return err
			}
		}
		if !same {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%q already exists in the target folder", strings.TrimPrefix(dst, newPrefix)),
				ResourceType: "file",
				Pathname:     dst,
			}
		}
	}
	return nil
}

// sameContent compares two objects chunk by chunk
func sameContent(ctx context.Context, blobs wsRepo.BlobStore, a, b string) (bool, error) {
	ra, _, err := blobs.Get(ctx, a)
	if err != nil {
		return false, domain.NewBlobError("get", a, err)
	}
	defer ra.Close()
	rb, _, err := blobs.Get(ctx, b)
	if err != nil {
		return false, domain.NewBlobError("get", b, err)
	}
	defer rb.Close()

	bufA := make([]byte, 32<<10)
	bufB := make([]byte, 32<<10)
	for {
		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false, domain.NewBlobError("get", a, errA)
		}
		if errB != nil && !doneB {
			return false, domain.NewBlobError("get", b, errB)
		}
		if doneA || doneB {
			return doneA && doneB, nil
		}
	}
}
