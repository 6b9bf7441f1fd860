package workspace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	wsSvc "filespace/internal/domain/services/workspace"
)

type bootstrapper struct {
	stores Stores
	logger *slog.Logger
}

// NewBootstrapper creates the default folder bootstrapper
func NewBootstrapper(stores Stores, logger *slog.Logger) wsSvc.Bootstrapper {
	return &bootstrapper{
		stores: stores,
		logger: logger,
	}
}

// EnsureDefaultFolder makes sure the owner's default folder exists as both a
// marker object and a record flagged IsDefault. Safe to call concurrently:
// the marker write is conditional and the record write is a merge, so racing
// callers converge on a single folder.
func (b *bootstrapper) EnsureDefaultFolder(ctx context.Context, ownerID string) (*models.Folder, error) {
	prefix, err := NamespacePrefix(ownerID)
	if err != nil {
		return nil, err
	}
	pathname := prefix + DefaultFolderPath

	existing, err := b.stores.Folders.Get(ctx, ownerID, pathname)
	switch {
	case err == nil && existing.IsDefault && existing.Name == DefaultFolderName:
		return existing, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, domain.NewMetadataError("get", pathname, err)
	}

	if existing == nil {
		_, err := b.stores.Blobs.Put(ctx, pathname, bytes.NewReader(nil), 0, FolderMarkerContentType,
			wsRepo.PutOptions{IfNotExists: true})
		if err != nil && !errors.Is(err, wsRepo.ErrBlobExists) {
			return nil, domain.NewBlobError("put", pathname, err)
		}
	}

	folder, err := b.stores.Folders.Merge(ctx, newFolderRecord(ownerID, prefix, DefaultFolderPath, nowUTC()))
	if err != nil {
		return nil, domain.NewMetadataError("merge", pathname, err)
	}

	if existing == nil {
		b.logger.Info("default folder created", "owner_id", ownerID, "pathname", pathname)
	} else {
		b.logger.Info("default folder flag restored", "owner_id", ownerID, "pathname", pathname)
	}
	return folder, nil
}
