// internal/application/usecase/asset/resolve.go
//
// Responsibility:
// - 保存済みキー → 署名付き読み取り URL の解決（順序保持）。
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
	"golang.org/x/sync/errgroup"

	assetdom "storefront/internal/domain/asset"
)

// ResolveURLs signs a read URL for every key, preserving order.
//
// The result always has len(keys) entries. A key that cannot be signed
// gets an empty URL and its index is reported in the returned
// *PartialBatchFailure (Op="resolve"); nothing is dropped silently.
func (c *Coordinator) ResolveURLs(ctx context.Context, keys []string) ([]assetdom.SignedURL, error) {
	out := make([]assetdom.SignedURL, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	expiresAt := c.now().UTC().Add(c.ttl)

	var (
		mu     sync.Mutex
		merr   *multierror.Error
		failed []int
	)
	record := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, i)
		merr = multierror.Append(merr, fmt.Errorf("[%d] %q: %w", i, keys[i], err))
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, key := range keys {
		out[i].Key = key
		if err := ctx.Err(); err != nil {
			record(i, err)
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			record(i, fmt.Errorf("%w: empty key", assetdom.ErrNotFound))
			continue
		}
		i, key := i, key
		g.Go(func() error {
			u, err := c.store.SignedURL(ctx, key, c.ttl)
			if err != nil {
				record(i, err)
				return nil
			}
			out[i].URL = u
			out[i].ExpiresAt = expiresAt
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return out, nil
	}
	sort.Ints(failed)
	failedKeys := make([]string, len(failed))
	for n, i := range failed {
		failedKeys[n] = keys[i]
	}
	c.log.Warn("signed url resolution failed",
		zap.Strings("failedKeys", failedKeys), zap.Error(merr.ErrorOrNil()))
	return out, &assetdom.PartialBatchFailure{
		Op:            assetdom.OpResolve,
		FailedKeys:    failedKeys,
		FailedIndices: failed,
		Cause:         merr.ErrorOrNil(),
	}
}

// ResolveURL signs a single key.
func (c *Coordinator) ResolveURL(ctx context.Context, key string) (assetdom.SignedURL, error) {
	urls, err := c.ResolveURLs(ctx, []string{key})
	if err != nil {
		var pbf *assetdom.PartialBatchFailure
		if errors.As(err, &pbf) && pbf.Cause != nil {
			return assetdom.SignedURL{Key: key}, pbf.Cause
		}
		return assetdom.SignedURL{Key: key}, err
	}
	return urls[0], nil
}
