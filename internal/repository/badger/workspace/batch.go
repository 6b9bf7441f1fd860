package workspace

import (
	"context"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"

	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/repository/badger"
)

// BatchWriter commits a metadata batch in a single read-write transaction
type BatchWriter struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// NewBatchWriter creates a new embedded batch writer
func NewBatchWriter(config *badger.RepositoryConfig) wsRepo.BatchWriter {
	return &BatchWriter{
		db:     config.DB,
		logger: config.Logger,
	}
}

// CommitBatch applies deletes, then puts. Cascades touch one subtree, which
// stays far below badger's transaction size limit for any realistic
// workspace; ErrTxnTooBig is reported rather than split so the batch keeps
// its all-or-nothing behavior.
func (w *BatchWriter) CommitBatch(ctx context.Context, batch *wsRepo.MetadataBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}

	err := w.db.Update(func(txn *badgerdb.Txn) error {
		for _, p := range batch.DeleteFiles {
			if err := txn.Delete(keyFile(batch.OwnerID, p)); err != nil {
				return err
			}
		}
		for _, p := range batch.DeleteFolders {
			if err := txn.Delete(keyFolder(batch.OwnerID, p)); err != nil {
				return err
			}
		}
		for i := range batch.PutFiles {
			f := &batch.PutFiles[i]
			if err := putJSON(txn, keyFile(f.OwnerID, f.Pathname), f); err != nil {
				return err
			}
		}
		for i := range batch.PutFolders {
			f := &batch.PutFolders[i]
			if err := putJSON(txn, keyFolder(f.OwnerID, f.Pathname), f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit metadata batch (%d ops): %w", batch.Len(), err)
	}

	w.logger.Debug("metadata batch committed",
		"owner_id", batch.OwnerID,
		"ops", batch.Len(),
	)
	return nil
}
