package workspace

import (
	"context"
	"errors"
	"io"

	"filespace/internal/domain/models/workspace"
)

var (
	// ErrBlobNotFound is returned when an object does not exist
	ErrBlobNotFound = errors.New("blob not found")

	// ErrBlobExists is returned by Put with IfNotExists when the key is taken
	ErrBlobExists = errors.New("blob already exists")
)

// PutOptions tunes a Put call
type PutOptions struct {
	// IfNotExists makes the write conditional on the key being free
	IfNotExists bool
}

// BlobStore is the gateway to the flat, prefix-addressed content store.
// Keys are full pathnames; the store knows nothing about folders.
type BlobStore interface {
	// Put writes an object, replacing any existing one unless IfNotExists is set
	Put(ctx context.Context, pathname string, body io.Reader, size int64, contentType string, opts PutOptions) (*workspace.Blob, error)

	// Get opens an object for reading. The caller closes the reader.
	Get(ctx context.Context, pathname string) (io.ReadCloser, *workspace.Blob, error)

	// Head returns object attributes without content
	Head(ctx context.Context, pathname string) (*workspace.Blob, error)

	// Copy duplicates src to dst server-side
	Copy(ctx context.Context, src, dst string) (*workspace.Blob, error)

	// Delete removes an object (no error if it is already gone)
	Delete(ctx context.Context, pathname string) error

	// DeleteBatch removes many objects. The map holds per-key failures; the
	// error is reserved for failures that aborted the whole call.
	DeleteBatch(ctx context.Context, pathnames []string) (map[string]error, error)

	// List returns one page of objects whose key starts with prefix, in key
	// order. Pass the previous page's NextCursor to continue.
	List(ctx context.Context, prefix, cursor string, limit int) (*workspace.BlobPage, error)
}
