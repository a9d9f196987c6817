// internal/application/usecase/asset/types.go
//
// Responsibility:
// - Asset coordinator の「型定義」を集約する（Port / Options / Coordinator struct）。
//
// Features:
// - BlobStore port (implemented by adapters/out/{gcs,s3,memblob})
// - Options with defaults
package asset

import (
	"context"
	"time"

	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
)

// BlobStore is the object-storage capability the coordinator depends on.
//
//   - Put is idempotent for a given key.
//   - SignedURL does not guarantee the object exists; absence usually
//     surfaces only when the URL is fetched.
//   - Delete of an absent object reports success.
//
// Adapters map failures onto assetdom.ErrStorageUnavailable,
// assetdom.ErrRejected and assetdom.ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Mode selects how ReplaceOrAppendImages combines the old and new keys.
type Mode int

const (
	ModeAppend Mode = iota + 1
	ModeReplace
)

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

const (
	defaultConcurrency         = 4
	defaultCompensationTimeout = 30 * time.Second
)

// Options tune the coordinator. Zero values fall back to defaults.
type Options struct {
	SignedURLTTL        time.Duration
	Concurrency         int
	MaxFileBytes        int64
	CompensationTimeout time.Duration
	Keys                assetdom.KeyGenerator
	Logger              *zap.Logger
	Now                 func() time.Time
}

// Coordinator owns every transition of an asset key:
// Pending → Stored → Referenced → Unreferenced → Deleted.
// It is the only component that deletes blobs.
type Coordinator struct {
	store               BlobStore
	keys                assetdom.KeyGenerator
	ttl                 time.Duration
	concurrency         int
	maxFileBytes        int64
	compensationTimeout time.Duration
	now                 func() time.Time
	log                 *zap.Logger
}

func NewCoordinator(store BlobStore, opts Options) *Coordinator {
	c := &Coordinator{
		store:               store,
		keys:                opts.Keys,
		ttl:                 opts.SignedURLTTL,
		concurrency:         opts.Concurrency,
		maxFileBytes:        opts.MaxFileBytes,
		compensationTimeout: opts.CompensationTimeout,
		now:                 opts.Now,
		log:                 opts.Logger,
	}
	if c.keys == nil {
		c.keys = assetdom.UUIDKeys{}
	}
	if c.ttl <= 0 {
		c.ttl = assetdom.DefaultSignedURLTTL
	}
	if c.concurrency <= 0 {
		c.concurrency = defaultConcurrency
	}
	if c.compensationTimeout <= 0 {
		c.compensationTimeout = defaultCompensationTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("asset")
	return c
}

// SignedURLTTL returns the lifetime used for every issued read URL.
func (c *Coordinator) SignedURLTTL() time.Duration { return c.ttl }

// compensationContext detaches cleanup from the caller's cancellation
// while still bounding it in time.
func (c *Coordinator) compensationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.compensationTimeout)
}
