package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/repository/badger"
)

// maxMergeAttempts bounds optimistic retries when concurrent merges collide
const maxMergeAttempts = 10

// FolderRepository stores folder records as JSON values under folder:<owner>:<id>
type FolderRepository struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// NewFolderRepository creates a new embedded folder repository
func NewFolderRepository(config *badger.RepositoryConfig) wsRepo.FolderRepository {
	return &FolderRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

// Get retrieves a folder record by pathname
func (r *FolderRepository) Get(ctx context.Context, ownerID, pathname string) (*models.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var folder models.Folder
	err := r.db.View(func(txn *badgerdb.Txn) error {
		return getJSON(txn, keyFolder(ownerID, pathname), &folder)
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder record %q not found", pathname)}
	}
	if err != nil {
		return nil, fmt.Errorf("get folder record: %w", err)
	}
	return &folder, nil
}

// Put creates or replaces a folder record
func (r *FolderRepository) Put(ctx context.Context, folder *models.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badgerdb.Txn) error {
		return putJSON(txn, keyFolder(folder.OwnerID, folder.Pathname), folder)
	})
	if err != nil {
		return fmt.Errorf("put folder record: %w", err)
	}
	return nil
}

// Merge upserts a folder record. An existing record keeps its CreatedAt and
// takes IsDefault, Name and UpdatedAt from the argument. Badger transactions
// are optimistic, so a concurrent writer surfaces as ErrConflict and the
// read-modify-write is retried.
func (r *FolderRepository) Merge(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	var merged models.Folder

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := r.db.Update(func(txn *badgerdb.Txn) error {
			key := keyFolder(folder.OwnerID, folder.Pathname)

			var existing models.Folder
			err := getJSON(txn, key, &existing)
			switch {
			case errors.Is(err, badgerdb.ErrKeyNotFound):
				merged = *folder
			case err != nil:
				return err
			default:
				merged = existing
				merged.IsDefault = folder.IsDefault
				merged.Name = folder.Name
				merged.UpdatedAt = folder.UpdatedAt
			}
			return putJSON(txn, key, &merged)
		})
		if err == nil {
			return &merged, nil
		}
		if !errors.Is(err, badgerdb.ErrConflict) || attempt >= maxMergeAttempts {
			return nil, fmt.Errorf("merge folder record: %w", err)
		}
		r.logger.Debug("folder merge conflict, retrying",
			"pathname", folder.Pathname,
			"attempt", attempt,
		)
	}
}

// Delete removes a folder record
func (r *FolderRepository) Delete(ctx context.Context, ownerID, pathname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyFolder(ownerID, pathname))
	})
	if err != nil {
		return fmt.Errorf("delete folder record: %w", err)
	}
	return nil
}

// ListByOwner returns every folder record of an owner
func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	folders := []models.Folder{}
	err := r.db.View(func(txn *badgerdb.Txn) error {
		return scanPrefix(ctx, txn, keyFolderPrefix(ownerID), func(val []byte) error {
			var f models.Folder
			if err := json.Unmarshal(val, &f); err != nil {
				return err
			}
			folders = append(folders, f)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list folder records: %w", err)
	}
	return folders, nil
}
