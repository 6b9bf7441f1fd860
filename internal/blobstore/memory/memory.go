package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
)

// Fault lets tests fail a specific operation on a specific key. Returning
// nil lets the call through.
type Fault func(op, pathname string) error

type object struct {
	data        []byte
	contentType string
	uploadedAt  time.Time
}

// Store implements BlobStore in memory. Keys are kept sorted so listing
// behaves like a prefix-addressed object store: lexical order, cursor-driven
// pages.
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Content is copied on read
// and write so callers never share buffers with the store.
type Store struct {
	mu       sync.RWMutex
	objects  map[string]*object
	keys     []string // sorted
	baseURL  string
	pageSize int
	fault    Fault
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithBaseURL sets the prefix used to build object URLs
func WithBaseURL(u string) Option {
	return func(s *Store) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithPageSize caps the number of objects returned per List page, so tests
// can exercise multi-page enumeration with few objects.
func WithPageSize(n int) Option {
	return func(s *Store) { s.pageSize = n }
}

// WithFault installs a fault hook consulted before every operation
func WithFault(f Fault) Option {
	return func(s *Store) { s.fault = f }
}

// NewStore creates an empty in-memory blob store
func NewStore(opts ...Option) *Store {
	s := &Store{
		objects:  make(map[string]*object),
		baseURL:  "memory:/",
		pageSize: 1000,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFault replaces the fault hook
func (s *Store) SetFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *Store) check(ctx context.Context, op, pathname string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	fault := s.fault
	s.mu.RUnlock()
	if fault != nil {
		return fault(op, pathname)
	}
	return nil
}

func (s *Store) blob(pathname string, obj *object) *models.Blob {
	url := s.baseURL + "/" + pathname
	return &models.Blob{
		Pathname:    pathname,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		URL:         url,
		DownloadURL: url + "?download=1",
		UploadedAt:  obj.uploadedAt,
	}
}

// insertKey adds a key to the sorted index. Caller holds the write lock.
func (s *Store) insertKey(pathname string) {
	i := sort.SearchStrings(s.keys, pathname)
	if i < len(s.keys) && s.keys[i] == pathname {
		return
	}
	s.keys = append(s.keys, "")
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = pathname
}

// removeKey drops a key from the sorted index. Caller holds the write lock.
func (s *Store) removeKey(pathname string) {
	i := sort.SearchStrings(s.keys, pathname)
	if i < len(s.keys) && s.keys[i] == pathname {
		s.keys = append(s.keys[:i], s.keys[i+1:]...)
	}
}

func (s *Store) Put(ctx context.Context, pathname string, body io.Reader, size int64, contentType string, opts wsRepo.PutOptions) (*models.Blob, error) {
	if err := s.check(ctx, "put", pathname); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return nil, fmt.Errorf("body length %d does not match declared size %d", len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[pathname]; exists && opts.IfNotExists {
		return nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobExists)
	}

	obj := &object{data: data, contentType: contentType, uploadedAt: s.now()}
	s.objects[pathname] = obj
	s.insertKey(pathname)
	return s.blob(pathname, obj), nil
}

func (s *Store) Get(ctx context.Context, pathname string) (io.ReadCloser, *models.Blob, error) {
	if err := s.check(ctx, "get", pathname); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[pathname]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobNotFound)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return io.NopCloser(bytes.NewReader(dataCopy)), s.blob(pathname, obj), nil
}

func (s *Store) Head(ctx context.Context, pathname string) (*models.Blob, error) {
	if err := s.check(ctx, "head", pathname); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[pathname]
	if !ok {
		return nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobNotFound)
	}
	return s.blob(pathname, obj), nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) (*models.Blob, error) {
	if err := s.check(ctx, "copy", src); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[src]
	if !ok {
		return nil, fmt.Errorf("%s: %w", src, wsRepo.ErrBlobNotFound)
	}
	dup := &object{
		data:        append([]byte(nil), obj.data...),
		contentType: obj.contentType,
		uploadedAt:  s.now(),
	}
	s.objects[dst] = dup
	s.insertKey(dst)
	return s.blob(dst, dup), nil
}

func (s *Store) Delete(ctx context.Context, pathname string) error {
	if err := s.check(ctx, "delete", pathname); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, pathname)
	s.removeKey(pathname)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, pathnames []string) (map[string]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := make(map[string]error)
	for _, p := range pathnames {
		if err := s.Delete(ctx, p); err != nil {
			failed[p] = err
		}
	}
	return failed, nil
}

// List returns keys starting with prefix in lexical order. The cursor is the
// last key of the previous page.
func (s *Store) List(ctx context.Context, prefix, cursor string, limit int) (*models.BlobPage, error) {
	if err := s.check(ctx, "list", prefix); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.SearchStrings(s.keys, prefix)
	if cursor != "" {
		start = sort.Search(len(s.keys), func(i int) bool { return s.keys[i] > cursor })
	}

	page := &models.BlobPage{}
	for i := start; i < len(s.keys); i++ {
		key := s.keys[i]
		if !strings.HasPrefix(key, prefix) {
			break
		}
		if len(page.Blobs) == limit {
			page.NextCursor = page.Blobs[len(page.Blobs)-1].Pathname
			break
		}
		page.Blobs = append(page.Blobs, *s.blob(key, s.objects[key]))
	}
	return page, nil
}

var _ wsRepo.BlobStore = (*Store)(nil)
