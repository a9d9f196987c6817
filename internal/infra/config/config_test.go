package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/shop")
	t.Setenv("BLOB_BACKEND", "memory")
	t.Setenv("SIGNED_URL_TTL", "15m")
	t.Setenv("UPLOAD_CONCURRENCY", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.CatalogStore != StorePostgres {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.SignedURLTTL != 15*time.Minute {
		t.Errorf("SignedURLTTL = %v", cfg.SignedURLTTL)
	}
	if cfg.UploadConcurrency != 8 {
		t.Errorf("UploadConcurrency = %d", cfg.UploadConcurrency)
	}
	if cfg.CompensationTimeout != 30*time.Second {
		t.Errorf("CompensationTimeout = %v", cfg.CompensationTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"BLOB_BACKEND": "memory"}},
		{"unknown store", map[string]string{"CATALOG_STORE": "mysql", "BLOB_BACKEND": "memory"}},
		{"gcs without bucket", map[string]string{"DATABASE_URL": "postgres://x"}},
		{"unknown blob backend", map[string]string{"DATABASE_URL": "postgres://x", "BLOB_BACKEND": "ftp"}},
		{"bad ttl", map[string]string{"DATABASE_URL": "postgres://x", "BLOB_BACKEND": "memory", "SIGNED_URL_TTL": "soon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":     0,
		"3600": time.Hour,
		"90s":  90 * time.Second,
		"1h":   time.Hour,
	}
	for in, want := range cases {
		got, err := duration(in)
		if err != nil || got != want {
			t.Errorf("duration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) Access(_ context.Context, name string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{
		GCPProjectID:    "shop",
		DatabaseURL:     "sm://db-url",
		SecretAccessKey: "sm://projects/other/secrets/s3-secret",
		AccessKey:       "plain",
	}
	sa := fakeSecrets{
		"projects/shop/secrets/db-url/versions/latest":     "postgres://secret",
		"projects/other/secrets/s3-secret/versions/latest": "xyz",
	}

	if !cfg.HasSecretRefs() {
		t.Fatalf("expected secret references")
	}
	if err := cfg.ResolveSecrets(context.Background(), sa); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://secret" || cfg.SecretAccessKey != "xyz" || cfg.AccessKey != "plain" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.HasSecretRefs() {
		t.Errorf("references left after resolving")
	}
}

func TestResolveSecrets_ReportsFailures(t *testing.T) {
	cfg := &Config{DatabaseURL: "sm://db-url", BucketName: "sm://missing"}

	// no project id and nothing stored
	if err := cfg.ResolveSecrets(context.Background(), fakeSecrets{}); err == nil {
		t.Fatalf("expected an error")
	}
	if cfg.DatabaseURL != "sm://db-url" {
		t.Errorf("unresolved value should be kept, got %q", cfg.DatabaseURL)
	}
}
