package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"filespace/internal/config"
	"filespace/internal/domain"
	models "filespace/internal/domain/models/workspace"
	wsRepo "filespace/internal/domain/repositories/workspace"
)

// cascadeOp identifies one folder rename or delete in logs and errors, so an
// operator can follow a partially applied cascade and re-issue it.
type cascadeOp struct {
	id       string
	kind     string // "rename" or "delete"
	ownerID  string
	pathname string
	started  time.Time
}

func newCascadeOp(kind, ownerID, pathname string) *cascadeOp {
	return &cascadeOp{
		id:       uuid.NewString(),
		kind:     kind,
		ownerID:  ownerID,
		pathname: pathname,
		started:  time.Now(),
	}
}

// cascader runs per-object blob work for a cascade: bounded fan-out, a rate
// limiter shared by every cascade of the process, and per-object retries.
type cascader struct {
	blobs   wsRepo.BlobStore
	limiter *rate.Limiter
	cfg     CascadeConfig
	logger  *slog.Logger
}

func newCascader(blobs wsRepo.BlobStore, cfg CascadeConfig, logger *slog.Logger) *cascader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > config.MaxCascadeConcurrency {
		cfg.Concurrency = config.MaxCascadeConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	limit := rate.Inf
	if cfg.OpsPerSecond > 0 {
		limit = rate.Limit(cfg.OpsPerSecond)
	}

	return &cascader{
		blobs:   blobs,
		limiter: rate.NewLimiter(limit, cfg.Concurrency),
		cfg:     cfg,
		logger:  logger,
	}
}

// logStep records progress of a cascade step
func (c *cascader) logStep(op *cascadeOp, step int, name string, args ...any) {
	attrs := append([]any{
		"op_id", op.id,
		"op", op.kind,
		"owner_id", op.ownerID,
		"pathname", op.pathname,
		"step", step,
		"step_name", name,
	}, args...)
	c.logger.Info("cascade step", attrs...)
}

// fail logs a failed step and wraps it as a retryable backing store error
// carrying the operation id.
func (c *cascader) fail(op *cascadeOp, step int, err error) error {
	var bse *domain.BackingStoreError
	if !errors.As(err, &bse) {
		bse = domain.NewBlobError("cascade", op.pathname, err)
	}
	bse.OpID = op.id
	bse.Retryable = true

	c.logger.Error("cascade failed",
		"op_id", op.id,
		"op", op.kind,
		"owner_id", op.ownerID,
		"pathname", op.pathname,
		"step", step,
		"failed_step", bse.Step,
		"failed_pathname", bse.Pathname,
		"error", bse.Err,
	)
	return bse
}

// withRetry runs fn up to MaxAttempts times with exponential backoff
func (c *cascader) withRetry(ctx context.Context, fn func() error) error {
	backoff := c.cfg.BaseBackoff
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == c.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// forEach runs task for every pathname. The first pathname that still fails
// after its retries cancels the rest and is reported.
func (c *cascader) forEach(ctx context.Context, step string, pathnames []string, task func(ctx context.Context, pathname string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, p := range pathnames {
		g.Go(func() error {
			err := c.withRetry(gctx, func() error {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
				return task(gctx, p)
			})
			if err != nil {
				return domain.NewBlobError(step, p, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// move copies src to dst and then deletes src. A missing source whose
// destination already exists is a move finished by an earlier attempt.
func (c *cascader) move(ctx context.Context, src, dst string) error {
	if _, err := c.blobs.Copy(ctx, src, dst); err != nil {
		if !errors.Is(err, wsRepo.ErrBlobNotFound) {
			return err
		}
		if _, herr := c.blobs.Head(ctx, dst); herr != nil {
			return err
		}
		return nil
	}
	return c.blobs.Delete(ctx, src)
}

// deleteAll bulk-deletes pathnames in chunks of the store's page cap,
// retrying only the keys that failed.
func (c *cascader) deleteAll(ctx context.Context, pathnames []string) error {
	for start := 0; start < len(pathnames); start += config.ListPageSize {
		end := min(start+config.ListPageSize, len(pathnames))
		pending := pathnames[start:end]

		err := c.withRetry(ctx, func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			failed, err := c.blobs.DeleteBatch(ctx, pending)
			if err != nil {
				return err
			}
			if len(failed) == 0 {
				pending = nil
				return nil
			}

			var first error
			next := make([]string, 0, len(failed))
			for _, p := range pending {
				if ferr, ok := failed[p]; ok {
					next = append(next, p)
					if first == nil {
						first = fmt.Errorf("%s: %w", p, ferr)
					}
				}
			}
			pending = next
			return fmt.Errorf("%d objects not deleted: %w", len(next), first)
		})
		if err != nil {
			failedPath := ""
			if len(pending) > 0 {
				failedPath = pending[0]
			}
			return domain.NewBlobError("delete", failedPath, err)
		}
	}
	return nil
}

func blobPathnames(blobs []models.Blob) []string {
	out := make([]string, len(blobs))
	for i := range blobs {
		out[i] = blobs[i].Pathname
	}
	return out
}
