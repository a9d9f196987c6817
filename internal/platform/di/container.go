// internal/platform/di/container.go
package di

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	httpin "storefront/internal/adapters/in/http"
	pgrepo "storefront/internal/adapters/out/db"
	fsrepo "storefront/internal/adapters/out/firestore"
	gcsblob "storefront/internal/adapters/out/gcs"
	"storefront/internal/adapters/out/memblob"
	s3blob "storefront/internal/adapters/out/s3"
	usecase "storefront/internal/application/usecase"
	assetuc "storefront/internal/application/usecase/asset"
	"storefront/internal/application/usecase/catalog"
	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	discountdom "storefront/internal/domain/discount"
	productdom "storefront/internal/domain/product"
	"storefront/internal/infra/config"
	"storefront/internal/infra/database"
	firestoreinfra "storefront/internal/infra/firestore"
)

// Container は main.go から使う依存オブジェクトの束。
// main.go を薄く保つため、組み立てはすべてここで行う。
type Container struct {
	Router    http.Handler
	Catalog   *catalog.Service
	Discounts *usecase.DiscountUsecase
	Assets    *assetuc.Coordinator

	log       *zap.Logger
	cleanupFn []func() error
}

type repositories struct {
	categories catdom.Repository
	products   productdom.Repository
	discounts  discountdom.Repository
}

// Close releases every client in reverse construction order.
func (c *Container) Close() {
	for i := len(c.cleanupFn) - 1; i >= 0; i-- {
		if err := c.cleanupFn[i](); err != nil {
			c.log.Warn("close failed", zap.Error(err))
		}
	}
	c.cleanupFn = nil
}

// Build は DI コンテナを初期化して返す。
//   - 外部リソース（blob store / DB or Firestore）を組み立てる
//   - Repository と Usecase と Router をつなぐ
//
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *Container, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Container{log: log.Named("di")}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// ------------------------------------------------------------
	// 1. Blob store
	// ------------------------------------------------------------
	blobs, err := c.blobStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c.Assets = assetuc.NewCoordinator(blobs, assetuc.Options{
		SignedURLTTL:        cfg.SignedURLTTL,
		Concurrency:         cfg.UploadConcurrency,
		MaxFileBytes:        cfg.MaxUploadBytes,
		CompensationTimeout: cfg.CompensationTimeout,
		Keys:                assetdom.UUIDKeys{Namespaced: cfg.KeyNamespaces},
		Logger:              log,
	})

	// ------------------------------------------------------------
	// 2. Repositories
	// ------------------------------------------------------------
	repos, err := c.repositories(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// ------------------------------------------------------------
	// 3. Usecases + Router
	// ------------------------------------------------------------
	c.Catalog = catalog.NewService(repos.categories, repos.products, c.Assets, log)
	c.Discounts = usecase.NewDiscountUsecase(repos.discounts, log)

	c.Router = httpin.NewRouter(httpin.RouterDeps{
		Categories:     c.Catalog,
		Products:       c.Catalog,
		Discounts:      c.Discounts,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   requestBodyLimit(cfg.MaxUploadBytes),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	log.Info("container ready",
		zap.String("catalogStore", cfg.CatalogStore),
		zap.String("blobBackend", cfg.BlobBackend),
		zap.Duration("signedURLTTL", c.Assets.SignedURLTTL()),
	)
	return c, nil
}

func (c *Container) blobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (assetuc.BlobStore, error) {
	switch cfg.BlobBackend {
	case config.BlobGCS:
		var opts []option.ClientOption
		if cfg.GoogleCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
		}
		client, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("di: gcs client: %w", err)
		}
		c.cleanupFn = append(c.cleanupFn, client.Close)
		return gcsblob.NewBlobStoreGCS(ctx, client, cfg.BucketName, cfg.GCSSignerEmail, log, opts...)

	case config.BlobS3:
		return s3blob.NewBlobStoreS3(ctx, s3blob.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.BucketRegion,
			Bucket:    cfg.BucketName,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretAccessKey,
			UseSSL:    cfg.S3UseSSL,
		}, log)

	case config.BlobMemory:
		log.Warn("using in-memory blob store; uploads are lost on restart")
		return memblob.New(cfg.BucketName), nil
	}
	return nil, fmt.Errorf("di: unknown blob backend %q", cfg.BlobBackend)
}

func (c *Container) repositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (repositories, error) {
	switch cfg.CatalogStore {
	case config.StorePostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return repositories{}, err
		}
		c.cleanupFn = append(c.cleanupFn, db.Close)
		return repositories{
			categories: pgrepo.NewCategoryRepositoryPG(db.Client),
			products:   pgrepo.NewProductRepositoryPG(db.Client),
			discounts:  pgrepo.NewDiscountRepositoryPG(db.Client),
		}, nil

	case config.StoreFirestore:
		fs, err := firestoreinfra.NewClient(ctx, cfg.GCPProjectID, cfg.FirestoreCredentialsFile, log)
		if err != nil {
			return repositories{}, err
		}
		c.cleanupFn = append(c.cleanupFn, fs.Close)
		if err := fs.Ping(ctx); err != nil {
			return repositories{}, err
		}
		return repositories{
			categories: fsrepo.NewCategoryRepositoryFS(fs.Client),
			products:   fsrepo.NewProductRepositoryFS(fs.Client),
			discounts:  fsrepo.NewDiscountRepositoryFS(fs.Client),
		}, nil
	}
	return repositories{}, fmt.Errorf("di: unknown catalog store %q", cfg.CatalogStore)
}

// a product create carries up to MaxImages files plus form fields
func requestBodyLimit(perFile int64) int64 {
	if perFile <= 0 {
		perFile = assetdom.DefaultMaxFileSize
	}
	return perFile*int64(productdom.MaxImages) + 1<<20
}
