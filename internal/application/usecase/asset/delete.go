// internal/application/usecase/asset/delete.go
//
// Responsibility:
// - 参照が外れたキーの削除（best-effort fan-out）と、補償削除。
//
// Features:
// - DeleteAssetsOf
// - Discard (compensation; detached from caller cancellation)
package asset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
)

// DeleteAssetsOf deletes every key. Failures do not stop the others; the
// aggregate is returned as a *PartialBatchFailure (RolledBack=false) that
// lists the keys still present. Already-absent keys count as deleted, so
// calling it twice on the same keys is safe.
//
// Duplicate keys are deleted once. FailedKeys lists each failed key once;
// FailedIndices lists every position in keys that holds a failed key.
//
// Once ctx is done no new deletions are issued; keys never attempted are
// reported as failed.
func (c *Coordinator) DeleteAssetsOf(ctx context.Context, keys []string) error {
	keys, at := uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		merr   *multierror.Error
		failed []int
		wg     sync.WaitGroup
		sem    = make(chan struct{}, c.concurrency)
	)
	record := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, i)
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", keys[i], err))
	}

issue:
	for i, key := range keys {
		stop := ctx.Err() != nil
		if !stop {
			select {
			case <-ctx.Done():
				stop = true
			case sem <- struct{}{}:
			}
		}
		if stop {
			for j := i; j < len(keys); j++ {
				record(j, ctx.Err())
			}
			break issue
		}

		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, assetdom.ErrNotFound) {
				record(i, err)
			}
		}(i, key)
	}
	wg.Wait()

	if len(failed) == 0 {
		c.log.Debug("deleted", zap.Strings("keys", keys))
		return nil
	}

	sort.Ints(failed)
	failedKeys := make([]string, len(failed))
	var indices []int
	for n, i := range failed {
		failedKeys[n] = keys[i]
		indices = append(indices, at[i]...)
	}
	sort.Ints(indices)
	c.log.Warn("best-effort delete left blobs behind",
		zap.Strings("failedKeys", failedKeys),
		zap.Int("total", len(keys)),
		zap.Error(merr.ErrorOrNil()),
	)
	return &assetdom.PartialBatchFailure{
		Op:            assetdom.OpDelete,
		FailedKeys:    failedKeys,
		FailedIndices: indices,
		RolledBack:    false,
		Cause:         merr.ErrorOrNil(),
	}
}

// Discard is the compensating delete for keys written by an operation
// that did not complete. It runs even if ctx is already cancelled and
// returns the keys it could not remove (they are logged as orphans).
func (c *Coordinator) Discard(ctx context.Context, keys []string) []string {
	keys, _ = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	cctx, cancel := c.compensationContext(ctx)
	defer cancel()

	err := c.DeleteAssetsOf(cctx, keys)
	if err == nil {
		c.log.Info("compensation: discarded uploads", zap.Strings("keys", keys))
		return nil
	}
	if pbf, ok := assetdom.AsPartial(err); ok {
		c.log.Error("compensation: orphaned blobs need manual cleanup",
			zap.Strings("orphans", pbf.FailedKeys), zap.Error(err))
		return pbf.FailedKeys
	}
	c.log.Error("compensation failed", zap.Strings("keys", keys), zap.Error(err))
	return keys
}

func (c *Coordinator) discardQuietly(ctx context.Context, keys []string) {
	_ = c.Discard(ctx, keys)
}

// uniqueKeys trims, drops empties and de-duplicates while keeping order.
// at[j] holds the input positions of out[j].
func uniqueKeys(keys []string) (out []string, at [][]int) {
	seen := make(map[string]int, len(keys))
	out = make([]string, 0, len(keys))
	for i, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if j, ok := seen[k]; ok {
			at[j] = append(at[j], i)
			continue
		}
		seen[k] = len(out)
		out = append(out, k)
		at = append(at, []int{i})
	}
	return out, at
}
