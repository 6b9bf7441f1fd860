package badger

import (
	"context"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// RepositoryConfig holds configuration for the embedded repository implementations
type RepositoryConfig struct {
	DB     *badgerdb.DB
	Logger *slog.Logger
}

// Open opens (or creates) the embedded metadata database at dir. An empty
// dir opens a purely in-memory database, used by tests and throwaway dev runs.
func Open(ctx context.Context, dir string) (*badgerdb.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badgerdb.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	// Records are small JSON documents; compression does not pay off
	opts = opts.WithLoggingLevel(badgerdb.WARNING).WithCompression(options.None)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}
