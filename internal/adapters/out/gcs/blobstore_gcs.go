// internal/adapters/out/gcs/blobstore_gcs.go
package gcs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"

	assetdom "storefront/internal/domain/asset"
)

// BlobStoreGCS stores catalog images in a single GCS bucket.
//
// Objects are private; reads go through V4 signed GET URLs.
//   - signer e-mail configured: signing is delegated to IAMCredentials
//     SignBlob (no JSON private key required, e.g. Cloud Run).
//   - otherwise: BucketHandle.SignedURL detects the credentials itself.
type BlobStoreGCS struct {
	Client      *storage.Client
	Bucket      string
	SignerEmail string

	iam *iamcredentials.Service
	log *zap.Logger
}

// NewBlobStoreGCS builds the adapter. The storage client (and the IAM
// client, if a signer is configured) is created once and shared.
func NewBlobStoreGCS(
	ctx context.Context,
	client *storage.Client,
	bucket string,
	signerEmail string,
	log *zap.Logger,
	opts ...option.ClientOption,
) (*BlobStoreGCS, error) {
	if client == nil {
		return nil, errors.New("blobstore_gcs: storage client is nil")
	}
	b := strings.TrimSpace(bucket)
	if b == "" {
		return nil, errors.New("blobstore_gcs: bucket is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &BlobStoreGCS{
		Client:      client,
		Bucket:      b,
		SignerEmail: strings.TrimSpace(signerEmail),
		log:         log.Named("gcs"),
	}
	if s.SignerEmail != "" {
		svc, err := iamcredentials.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("blobstore_gcs: iamcredentials init failed: %w", err)
		}
		s.iam = svc
	}
	return s, nil
}

func (s *BlobStoreGCS) object(key string) (*storage.ObjectHandle, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return nil, assetdom.Validationf("object key is empty")
	}
	return s.Client.Bucket(s.Bucket).Object(k), nil
}

// Put writes data under key. Re-putting the same key overwrites it.
func (s *BlobStoreGCS) Put(ctx context.Context, key string, data []byte, contentType string) error {
	oh, err := s.object(key)
	if err != nil {
		return err
	}

	w := oh.NewWriter(ctx)
	w.ContentType = strings.TrimSpace(contentType)
	w.CacheControl = "private, max-age=0"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return mapErr("put", key, err)
	}
	if err := w.Close(); err != nil {
		return mapErr("put", key, err)
	}
	return nil
}

// SignedURL issues a V4 signed GET URL. It does not check that the
// object exists.
func (s *BlobStoreGCS) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	k := strings.TrimLeft(strings.TrimSpace(key), "/")
	if k == "" {
		return "", fmt.Errorf("%w: empty key", assetdom.ErrNotFound)
	}
	if ttl <= 0 {
		ttl = assetdom.DefaultSignedURLTTL
	}

	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().UTC().Add(ttl),
	}
	if s.iam != nil {
		opts.GoogleAccessID = s.SignerEmail
		opts.SignBytes = s.signBytes(ctx)
	}

	u, err := s.Client.Bucket(s.Bucket).SignedURL(k, opts)
	if err != nil {
		return "", mapErr("sign", key, err)
	}
	return u, nil
}

// Delete removes key. An absent object is not an error.
func (s *BlobStoreGCS) Delete(ctx context.Context, key string) error {
	oh, err := s.object(key)
	if err != nil {
		return err
	}
	if err := oh.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.log.Debug("delete: already absent", zap.String("key", key))
			return nil
		}
		return mapErr("delete", key, err)
	}
	return nil
}

func (s *BlobStoreGCS) signBytes(ctx context.Context) func([]byte) ([]byte, error) {
	name := fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail)
	return func(b []byte) ([]byte, error) {
		req := &iamcredentials.SignBlobRequest{
			Payload: base64.StdEncoding.EncodeToString(b),
		}
		resp, err := s.iam.Projects.ServiceAccounts.SignBlob(name, req).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(resp.SignedBlob)
	}
}

// mapErr folds SDK errors into the asset error taxonomy.
func mapErr(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrObjectNotExist), errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("gcs %s %q: %w: %w", op, key, assetdom.ErrNotFound, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("gcs %s %q: %w", op, key, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("gcs %s %q: %w: %w", op, key, assetdom.ErrNotFound, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return fmt.Errorf("gcs %s %q: %w: %w", op, key, assetdom.ErrStorageUnavailable, err)
		case gerr.Code >= 400:
			return fmt.Errorf("gcs %s %q: %w: %w", op, key, assetdom.ErrRejected, err)
		}
	}
	return fmt.Errorf("gcs %s %q: %w: %w", op, key, assetdom.ErrStorageUnavailable, err)
}
