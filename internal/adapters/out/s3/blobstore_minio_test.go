package s3

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	assetdom "storefront/internal/domain/asset"
)

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, assetdom.ErrNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, assetdom.ErrNotFound},
		{"slow down", minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, assetdom.ErrStorageUnavailable},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, assetdom.ErrRejected},
		{"entity too large", minio.ErrorResponse{Code: "EntityTooLarge", StatusCode: 400}, assetdom.ErrRejected},
		{"network", errors.New("connection refused"), assetdom.ErrStorageUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapErr("put", "categories/x.jpg", tc.in)
			if !errors.Is(got, tc.want) {
				t.Fatalf("mapErr(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapErr_Deadline(t *testing.T) {
	got := mapErr("put", "k", context.DeadlineExceeded)
	if !errors.Is(got, context.DeadlineExceeded) || errors.Is(got, assetdom.ErrStorageUnavailable) {
		t.Fatalf("got %v", got)
	}
}
