package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
	"filespace/internal/repository/postgres"
)

const folderColumns = `owner_id, pathname, relative_path, parent_path, name, is_default,
	created_at, updated_at`

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	config *postgres.RepositoryConfig
	logger *slog.Logger
}

// NewFolderRepository creates a new folder record repository
func NewFolderRepository(config *postgres.RepositoryConfig) wsRepo.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
		config: config,
		logger: config.Logger,
	}
}

// Get retrieves a folder record by pathname
func (r *PostgresFolderRepository) Get(ctx context.Context, ownerID, pathname string) (*models.Folder, error) {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND id = $2
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, ownerID, models.EncodeID(pathname)))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder record %q not found", pathname)}
		}
		return nil, fmt.Errorf("get folder record: %w", err)
	}

	return folder, nil
}

// Put creates or replaces a folder record
func (r *PostgresFolderRepository) Put(ctx context.Context, folder *models.Folder) error {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, upsertFolderSQL(r.tables.Folders), folderArgs(folder)...); err != nil {
		return fmt.Errorf("put folder record: %w", err)
	}
	return nil
}

// Merge upserts a folder record in one statement. An existing row keeps its
// created_at and takes is_default, name and updated_at from the argument;
// the row lock taken by ON CONFLICT serializes concurrent callers.
func (r *PostgresFolderRepository) Merge(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			is_default = EXCLUDED.is_default,
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, r.tables.Folders, folderColumns, folderColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	merged, err := scanFolder(executor.QueryRow(ctx, query, folderArgs(folder)...))
	if err != nil {
		return nil, fmt.Errorf("merge folder record: %w", err)
	}

	return merged, nil
}

// Delete removes a folder record (no error if it is already gone)
func (r *PostgresFolderRepository) Delete(ctx context.Context, ownerID, pathname string) error {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND id = $2`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ownerID, models.EncodeID(pathname)); err != nil {
		return fmt.Errorf("delete folder record: %w", err)
	}
	return nil
}

// ListByOwner returns every folder record of an owner
func (r *PostgresFolderRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Folder, error) {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY pathname
	`, folderColumns, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folder records: %w", err)
	}
	defer rows.Close()

	folders := make([]models.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder record: %w", err)
		}
		folders = append(folders, *folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folder records: %w", err)
	}

	return folders, nil
}

func upsertFolderSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			pathname = EXCLUDED.pathname,
			relative_path = EXCLUDED.relative_path,
			parent_path = EXCLUDED.parent_path,
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, table, folderColumns)
}

func folderArgs(f *models.Folder) []any {
	return []any{
		models.EncodeID(f.Pathname),
		f.OwnerID,
		f.Pathname,
		f.RelativePath,
		f.ParentPath,
		f.Name,
		f.IsDefault,
		f.CreatedAt,
		f.UpdatedAt,
	}
}

func scanFolder(row pgx.Row) (*models.Folder, error) {
	var f models.Folder
	err := row.Scan(
		&f.OwnerID,
		&f.Pathname,
		&f.RelativePath,
		&f.ParentPath,
		&f.Name,
		&f.IsDefault,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}
