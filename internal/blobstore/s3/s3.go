// Package s3 implements the blob store gateway on Amazon S3 or any
// S3-compatible object store.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// maxDeleteBatch is the S3 DeleteObjects limit
const maxDeleteBatch = 1000

// Store implements BlobStore on an S3 bucket. Object keys are the full
// pathnames; nothing is prepended.
type Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewStore verifies the bucket is reachable and returns a Store for it.
func NewStore(ctx context.Context, client *s3.Client, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return newStore(client, cfg), nil
}

func newStore(client *s3.Client, cfg Config) *Store {
	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		switch {
		case cfg.Endpoint != "":
			publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		default:
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &Store{client: client, bucket: cfg.Bucket, publicURL: publicURL}
}

// Put uploads body in a single PutObject call. IfNotExists sends
// If-None-Match: * so the store rejects the write when the key is taken.
func (s *Store) Put(ctx context.Context, pathname string, body io.Reader, size int64, contentType string, opts wsRepo.PutOptions) (*models.Blob, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(pathname),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if opts.IfNotExists {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobExists)
		}
		return nil, fmt.Errorf("put %s: %w", pathname, err)
	}

	return s.blob(pathname, size, contentType, time.Now().UTC()), nil
}

func (s *Store) Get(ctx context.Context, pathname string) (io.ReadCloser, *models.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(pathname),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobNotFound)
		}
		return nil, nil, fmt.Errorf("get %s: %w", pathname, err)
	}

	blob := s.blob(pathname, aws.ToInt64(out.ContentLength), aws.ToString(out.ContentType), aws.ToTime(out.LastModified))
	return out.Body, blob, nil
}

func (s *Store) Head(ctx context.Context, pathname string) (*models.Blob, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(pathname),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", pathname, wsRepo.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("head %s: %w", pathname, err)
	}

	return s.blob(pathname, aws.ToInt64(out.ContentLength), aws.ToString(out.ContentType), aws.ToTime(out.LastModified)), nil
}

// Copy duplicates src server-side, then heads dst so the returned blob
// carries the real size and content type.
func (s *Store) Copy(ctx context.Context, src, dst string) (*models.Blob, error) {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dst),
		CopySource: aws.String(copySource(s.bucket, src)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", src, wsRepo.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	return s.Head(ctx, dst)
}

// Delete removes an object. S3 answers 204 for missing keys, so deleting
// twice is not an error.
func (s *Store) Delete(ctx context.Context, pathname string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(pathname),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", pathname, err)
	}
	return nil
}

// DeleteBatch removes pathnames in DeleteObjects calls of up to 1000 keys.
// A failed request marks every key of its chunk as failed; per-key errors
// reported by S3 are returned individually.
func (s *Store) DeleteBatch(ctx context.Context, pathnames []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i := 0; i < len(pathnames); i += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			for _, p := range pathnames[i:] {
				failures[p] = err
			}
			return failures, err
		}

		end := min(i+maxDeleteBatch, len(pathnames))
		batch := pathnames[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			for _, key := range batch {
				failures[key] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			failures[*deleteErr.Key] = fmt.Errorf("%s: %s", aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message))
		}
	}

	return failures, nil
}

// List returns one ListObjectsV2 page. The cursor is the S3 continuation token.
func (s *Store) List(ctx context.Context, prefix, cursor string, limit int) (*models.BlobPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}
	if limit > 0 {
		input.MaxKeys = aws.Int32(int32(min(limit, maxDeleteBatch)))
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	page := &models.BlobPage{Blobs: make([]models.Blob, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		// Listings carry no content type; a trailing slash marks a folder
		contentType := ""
		if strings.HasSuffix(key, "/") {
			contentType = "application/x-directory"
		}
		page.Blobs = append(page.Blobs, *s.blob(key, aws.ToInt64(obj.Size), contentType, aws.ToTime(obj.LastModified)))
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextCursor = aws.ToString(out.NextContinuationToken)
	}

	return page, nil
}

func (s *Store) blob(pathname string, size int64, contentType string, uploadedAt time.Time) *models.Blob {
	u := s.objectURL(pathname)
	return &models.Blob{
		Pathname:    pathname,
		Size:        size,
		ContentType: contentType,
		URL:         u,
		DownloadURL: u + "?download=1",
		UploadedAt:  uploadedAt.UTC(),
	}
}

func (s *Store) objectURL(pathname string) string {
	return s.publicURL + "/" + escapeKey(pathname)
}

// escapeKey escapes each segment of a key, keeping the slashes.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func copySource(bucket, key string) string {
	return bucket + "/" + escapeKey(key)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isPreconditionFailed matches the conditional-write rejections: 412 when
// the key exists, 409 when a concurrent conditional write won the race.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

var _ wsRepo.BlobStore = (*Store)(nil)
