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

// FileRepository stores file records as JSON values under file:<owner>:<id>
type FileRepository struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// NewFileRepository creates a new embedded file repository
func NewFileRepository(config *badger.RepositoryConfig) wsRepo.FileRepository {
	return &FileRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

// Get retrieves a file record by pathname
func (r *FileRepository) Get(ctx context.Context, ownerID, pathname string) (*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var file models.File
	err := r.db.View(func(txn *badgerdb.Txn) error {
		return getJSON(txn, keyFile(ownerID, pathname), &file)
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("file record %q not found", pathname)}
	}
	if err != nil {
		return nil, fmt.Errorf("get file record: %w", err)
	}
	return &file, nil
}

// Put creates or replaces a file record
func (r *FileRepository) Put(ctx context.Context, file *models.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badgerdb.Txn) error {
		return putJSON(txn, keyFile(file.OwnerID, file.Pathname), file)
	})
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

// Delete removes a file record
func (r *FileRepository) Delete(ctx context.Context, ownerID, pathname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(keyFile(ownerID, pathname))
	})
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// ListByOwner returns every file record of an owner
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	files := []models.File{}
	err := r.db.View(func(txn *badgerdb.Txn) error {
		return scanPrefix(ctx, txn, keyFilePrefix(ownerID), func(val []byte) error {
			var f models.File
			if err := json.Unmarshal(val, &f); err != nil {
				return err
			}
			files = append(files, f)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	return files, nil
}

func getJSON(txn *badgerdb.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func putJSON(txn *badgerdb.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return txn.Set(key, data)
}

// scanPrefix calls fn with every value whose key starts with prefix
func scanPrefix(ctx context.Context, txn *badgerdb.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		// Check context periodically
		if n%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		n++
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}
