// internal/application/usecase/asset/upload.go
//
// Responsibility:
// - ファイルのアップロード（単体 / バッチ）。
//
// Features:
// - UploadOne
// - UploadMany (bounded parallel; on partial failure every key written by
//   the call is deleted before the error is returned)
package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	assetdom "storefront/internal/domain/asset"
)

// UploadOne stores a single file under a fresh key.
// A failure leaves nothing behind.
func (c *Coordinator) UploadOne(ctx context.Context, f assetdom.File, ns assetdom.Namespace) (string, error) {
	if err := f.Validate(c.maxFileBytes); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", assetdom.ErrUploadFailed, err)
	}

	key := assetdom.KeyFor(c.keys, f, ns)
	if err := c.store.Put(ctx, key, f.Data, assetdom.ContentTypeOf(f)); err != nil {
		// a cancelled writer may still have committed the object
		c.discardQuietly(ctx, []string{key})
		return "", fmt.Errorf("%w: %s: %w", assetdom.ErrUploadFailed, f.Name, err)
	}

	c.log.Debug("uploaded", zap.String("key", key), zap.Int64("size", f.Size()))
	return key, nil
}

// UploadMany uploads files in parallel and returns their keys in input order.
//
// Either every file is stored, or none is: when any upload fails (or ctx
// is cancelled before all uploads were issued) the keys already written
// are deleted and a *PartialBatchFailure with RolledBack=true is returned.
// If nothing was written the error is a plain ErrUploadFailed.
func (c *Coordinator) UploadMany(ctx context.Context, files []assetdom.File, ns assetdom.Namespace) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	for _, f := range files {
		if err := f.Validate(c.maxFileBytes); err != nil {
			return nil, err
		}
	}

	var (
		keys  = make([]string, len(files)) // attempted keys
		ok    = make([]bool, len(files))
		mu    sync.Mutex
		first error
	)
	fail := func(err error) {
		mu.Lock()
		if first == nil {
			first = err
		}
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range files {
		if gctx.Err() != nil {
			break // stop issuing; in-flight puts finish on their own
		}
		i := i
		f := files[i]
		key := assetdom.KeyFor(c.keys, f, ns)
		keys[i] = key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				fail(err)
				return err
			}
			if err := c.store.Put(gctx, key, f.Data, assetdom.ContentTypeOf(f)); err != nil {
				err = fmt.Errorf("%s: %w", f.Name, err)
				fail(err)
				return err
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var failed []int
	var stored int
	for i := range files {
		if ok[i] {
			stored++
		} else {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return keys, nil
	}

	if first == nil {
		first = ctx.Err()
	}
	if first == nil {
		first = errors.New("upload not attempted")
	}
	cause := fmt.Errorf("%w: %w", assetdom.ErrUploadFailed, first)

	attempted := make([]string, 0, len(keys))
	failedKeys := make([]string, 0, len(failed))
	for i, k := range keys {
		if k == "" {
			continue
		}
		attempted = append(attempted, k)
		if !ok[i] {
			failedKeys = append(failedKeys, k)
		}
	}

	// Roll back everything this call may have written (failed puts
	// included: a cancelled writer can still commit).
	leftovers := c.Discard(ctx, attempted)

	if stored == 0 && len(leftovers) == 0 {
		c.log.Warn("upload batch failed, nothing stored",
			zap.Int("files", len(files)), zap.Error(first))
		return nil, cause
	}

	c.log.Warn("upload batch failed, rolled back",
		zap.Int("files", len(files)),
		zap.Int("stored", stored),
		zap.Ints("failedIndices", failed),
		zap.Strings("leftovers", leftovers),
		zap.Error(first),
	)
	return nil, &assetdom.PartialBatchFailure{
		Op:                assetdom.OpUpload,
		FailedKeys:        failedKeys,
		FailedIndices:     failed,
		RolledBack:        true,
		RollbackLeftovers: leftovers,
		Cause:             cause,
	}
}
