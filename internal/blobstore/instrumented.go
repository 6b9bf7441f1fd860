// Package blobstore holds the cross-cutting wrappers around a content store
// gateway. Concrete gateways live in the memory and s3 subpackages.
package blobstore

import (
	"context"
	"io"
	"time"

	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
)

// Metrics records blob store call outcomes. A nil Metrics disables collection.
type Metrics interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}

// Instrumented bounds every call to the wrapped store with a timeout and
// reports it to Metrics. A call that outlives the timeout fails with
// context.DeadlineExceeded, which the services report as a retryable
// backing store failure.
type Instrumented struct {
	next    wsRepo.BlobStore
	timeout time.Duration
	metrics Metrics
}

// NewInstrumented wraps next. A timeout <= 0 leaves calls unbounded.
func NewInstrumented(next wsRepo.BlobStore, timeout time.Duration, m Metrics) *Instrumented {
	if m == nil {
		m = noopMetrics{}
	}
	return &Instrumented{next: next, timeout: timeout, metrics: m}
}

func (s *Instrumented) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), err)
}

func (s *Instrumented) Put(ctx context.Context, pathname string, body io.Reader, size int64, contentType string, opts wsRepo.PutOptions) (*models.Blob, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	blob, err := s.next.Put(ctx, pathname, body, size, contentType, opts)
	s.observe("put", start, err)
	if err == nil && size > 0 {
		s.metrics.RecordBytes("put", size)
	}
	return blob, err
}

// Get keeps the timeout context alive until the caller closes the reader,
// so the deadline covers the whole download.
func (s *Instrumented) Get(ctx context.Context, pathname string) (io.ReadCloser, *models.Blob, error) {
	ctx, cancel := s.bound(ctx)

	start := time.Now()
	rc, blob, err := s.next.Get(ctx, pathname)
	s.observe("get", start, err)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if blob != nil && blob.Size > 0 {
		s.metrics.RecordBytes("get", blob.Size)
	}
	return &cancelOnClose{ReadCloser: rc, cancel: cancel}, blob, nil
}

func (s *Instrumented) Head(ctx context.Context, pathname string) (*models.Blob, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	blob, err := s.next.Head(ctx, pathname)
	s.observe("head", start, err)
	return blob, err
}

func (s *Instrumented) Copy(ctx context.Context, src, dst string) (*models.Blob, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	blob, err := s.next.Copy(ctx, src, dst)
	s.observe("copy", start, err)
	return blob, err
}

func (s *Instrumented) Delete(ctx context.Context, pathname string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	err := s.next.Delete(ctx, pathname)
	s.observe("delete", start, err)
	return err
}

func (s *Instrumented) DeleteBatch(ctx context.Context, pathnames []string) (map[string]error, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	failed, err := s.next.DeleteBatch(ctx, pathnames)
	s.observe("delete_batch", start, err)
	return failed, err
}

func (s *Instrumented) List(ctx context.Context, prefix, cursor string, limit int) (*models.BlobPage, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	start := time.Now()
	page, err := s.next.List(ctx, prefix, cursor, limit)
	s.observe("list", start, err)
	return page, err
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

var _ wsRepo.BlobStore = (*Instrumented)(nil)
