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

const fileColumns = `owner_id, pathname, relative_path, parent_path, name, doc_type,
	content_type, size, url, download_url, created_at, updated_at`

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	config *postgres.RepositoryConfig
	logger *slog.Logger
}

// NewFileRepository creates a new file record repository
func NewFileRepository(config *postgres.RepositoryConfig) wsRepo.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
		config: config,
		logger: config.Logger,
	}
}

// Get retrieves a file record by pathname
func (r *PostgresFileRepository) Get(ctx context.Context, ownerID, pathname string) (*models.File, error) {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND id = $2
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, ownerID, models.EncodeID(pathname)))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("file record %q not found", pathname)}
		}
		return nil, fmt.Errorf("get file record: %w", err)
	}

	return file, nil
}

// Put creates or replaces a file record
func (r *PostgresFileRepository) Put(ctx context.Context, file *models.File) error {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, upsertFileSQL(r.tables.Files), fileArgs(file)...); err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

// Delete removes a file record (no error if it is already gone)
func (r *PostgresFileRepository) Delete(ctx context.Context, ownerID, pathname string) error {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND id = $2`, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, ownerID, models.EncodeID(pathname)); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

// ListByOwner returns every file record of an owner
func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	ctx, cancel := r.config.Bound(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY pathname
	`, fileColumns, r.tables.Files)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}
	defer rows.Close()

	files := make([]models.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}

	return files, nil
}

func upsertFileSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (owner_id, id) DO UPDATE SET
			pathname = EXCLUDED.pathname,
			relative_path = EXCLUDED.relative_path,
			parent_path = EXCLUDED.parent_path,
			name = EXCLUDED.name,
			doc_type = EXCLUDED.doc_type,
			content_type = EXCLUDED.content_type,
			size = EXCLUDED.size,
			url = EXCLUDED.url,
			download_url = EXCLUDED.download_url,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, table, fileColumns)
}

func fileArgs(f *models.File) []any {
	return []any{
		models.EncodeID(f.Pathname),
		f.OwnerID,
		f.Pathname,
		f.RelativePath,
		f.ParentPath,
		f.Name,
		f.DocType,
		f.ContentType,
		f.Size,
		f.URL,
		f.DownloadURL,
		f.CreatedAt,
		f.UpdatedAt,
	}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var f models.File
	err := row.Scan(
		&f.OwnerID,
		&f.Pathname,
		&f.RelativePath,
		&f.ParentPath,
		&f.Name,
		&f.DocType,
		&f.ContentType,
		&f.Size,
		&f.URL,
		&f.DownloadURL,
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
