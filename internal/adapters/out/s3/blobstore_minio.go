// internal/adapters/out/s3/blobstore_minio.go
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
)

// S3 presigned URLs cannot outlive seven days.
const maxPresignTTL = 7 * 24 * time.Hour

// Config is the static connection data for an S3-compatible bucket.
type Config struct {
	Endpoint  string // host[:port], e.g. s3.eu-west-1.amazonaws.com or localhost:9000
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// BlobStoreS3 stores catalog images in an S3-compatible bucket
// (AWS S3, MinIO, ...). Objects stay private and are read through
// presigned GET URLs.
type BlobStoreS3 struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewBlobStoreS3 creates the shared client and makes sure the bucket exists.
func NewBlobStoreS3(ctx context.Context, cfg Config, log *zap.Logger) (*BlobStoreS3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
		if r := strings.TrimSpace(cfg.Region); r != "" {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", r)
		}
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("blobstore_s3: bucket is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore_s3: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("blobstore_s3: check bucket: %w", mapErr("head", bucket, err))
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("blobstore_s3: create bucket %q: %w", bucket, err)
		}
		log.Info("created bucket", zap.String("bucket", bucket))
	}

	return &BlobStoreS3{client: client, bucket: bucket, log: log.Named("s3")}, nil
}

func (s *BlobStoreS3) Put(ctx context.Context, key string, data []byte, contentType string) error {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return assetdom.Validationf("object key is empty")
	}
	_, err := s.client.PutObject(ctx, s.bucket, k, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: strings.TrimSpace(contentType),
	})
	if err != nil {
		return mapErr("put", key, err)
	}
	return nil
}

// SignedURL presigns a GET for key without checking that it exists.
func (s *BlobStoreS3) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return "", fmt.Errorf("%w: empty key", assetdom.ErrNotFound)
	}
	if ttl <= 0 {
		ttl = assetdom.DefaultSignedURLTTL
	}
	if ttl > maxPresignTTL {
		ttl = maxPresignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, k, ttl, nil)
	if err != nil {
		return "", mapErr("sign", key, err)
	}
	return u.String(), nil
}

// Delete removes key. S3 already answers 204 for an absent key; a
// NoSuchKey from a stricter backend is swallowed as well.
func (s *BlobStoreS3) Delete(ctx context.Context, key string) error {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, k, minio.RemoveObjectOptions{}); err != nil {
		err = mapErr("delete", key, err)
		if errors.Is(err, assetdom.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func mapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("s3 %s %q: %w", op, key, err)
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("s3 %s %q: %w: %w", op, key, assetdom.ErrNotFound, err)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("s3 %s %q: %w: %w", op, key, assetdom.ErrStorageUnavailable, err)
	case resp.StatusCode >= 400:
		return fmt.Errorf("s3 %s %q: %w: %w", op, key, assetdom.ErrRejected, err)
	}
	// no HTTP response: dial/TLS/DNS failure
	return fmt.Errorf("s3 %s %q: %w: %w", op, key, assetdom.ErrStorageUnavailable, err)
}
