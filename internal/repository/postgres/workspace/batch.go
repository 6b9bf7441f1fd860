package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	models "filespace/internal/domain/models/workspace"
	"filespace/internal/domain/repositories"
	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/repository/postgres"
)

// PostgresBatchWriter commits a metadata batch as one pgx.Batch inside a
// single transaction
type PostgresBatchWriter struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	config *postgres.RepositoryConfig
	tx     repositories.TransactionManager
	logger *slog.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(config *postgres.RepositoryConfig, tx repositories.TransactionManager) wsRepo.BatchWriter {
	return &PostgresBatchWriter{
		pool:   config.Pool,
		tables: config.Tables,
		config: config,
		tx:     tx,
		logger: config.Logger,
	}
}

// CommitBatch applies deletes, then puts, all-or-nothing.
func (w *PostgresBatchWriter) CommitBatch(ctx context.Context, batch *wsRepo.MetadataBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	ctx, cancel := w.config.Bound(ctx)
	defer cancel()

	b := &pgx.Batch{}
	deleteFile := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND id = $2`, w.tables.Files)
	deleteFolder := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND id = $2`, w.tables.Folders)

	for _, p := range batch.DeleteFiles {
		b.Queue(deleteFile, batch.OwnerID, models.EncodeID(p))
	}
	for _, p := range batch.DeleteFolders {
		b.Queue(deleteFolder, batch.OwnerID, models.EncodeID(p))
	}
	upsertFile := upsertFileSQL(w.tables.Files)
	for i := range batch.PutFiles {
		b.Queue(upsertFile, fileArgs(&batch.PutFiles[i])...)
	}
	upsertFolder := upsertFolderSQL(w.tables.Folders)
	for i := range batch.PutFolders {
		b.Queue(upsertFolder, folderArgs(&batch.PutFolders[i])...)
	}

	err := w.tx.ExecTx(ctx, func(txCtx context.Context) error {
		results := postgres.GetExecutor(txCtx, w.pool).SendBatch(txCtx, b)
		for i := 0; i < b.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("batch statement %d: %w", i, err)
			}
		}
		return results.Close()
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
