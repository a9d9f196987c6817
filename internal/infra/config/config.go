// internal/infra/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定を保持します。
type Config struct {
	Port string

	// catalog store: "postgres" | "firestore"
	CatalogStore string
	DatabaseURL  string

	GCPProjectID             string
	GoogleCredentialsFile    string
	FirestoreCredentialsFile string

	// blob store: "gcs" | "s3" | "memory"
	BlobBackend     string
	BucketName      string
	BucketRegion    string
	AccessKey       string
	SecretAccessKey string
	S3Endpoint      string
	S3UseSSL        bool
	GCSSignerEmail  string

	SignedURLTTL        time.Duration
	UploadConcurrency   int
	KeyNamespaces       bool
	MaxUploadBytes      int64
	RequestTimeout      time.Duration
	CompensationTimeout time.Duration
	AllowedOrigins      []string

	LogMode string // "development" | "production"
	LogFile string
}

const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"

	BlobGCS    = "gcs"
	BlobS3     = "s3"
	BlobMemory = "memory"
)

var defaults = map[string]any{
	"PORT":                 "8080",
	"CATALOG_STORE":        StorePostgres,
	"BLOB_BACKEND":         BlobGCS,
	"SIGNED_URL_TTL":       "3600",
	"UPLOAD_CONCURRENCY":   4,
	"KEY_NAMESPACES":       false,
	"MAX_UPLOAD_BYTES":     20 << 20,
	"REQUEST_TIMEOUT":      "60s",
	"COMPENSATION_TIMEOUT": "30s",
	"S3_USE_SSL":           true,
	"LOG_MODE":             "production",
}

// Load reads .env files (if any), an optional config file and the
// environment, in increasing priority. path may be empty.
func Load(path string) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f) // missing files are fine
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	if path != "" {
		v.SetConfigFile(path)
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                     strings.TrimSpace(v.GetString("PORT")),
		CatalogStore:             strings.ToLower(strings.TrimSpace(v.GetString("CATALOG_STORE"))),
		DatabaseURL:              strings.TrimSpace(v.GetString("DATABASE_URL")),
		GCPProjectID:             strings.TrimSpace(v.GetString("GCP_PROJECT_ID")),
		GoogleCredentialsFile:    strings.TrimSpace(v.GetString("GOOGLE_APPLICATION_CREDENTIALS")),
		FirestoreCredentialsFile: strings.TrimSpace(v.GetString("FIRESTORE_CREDENTIALS_FILE")),
		BlobBackend:              strings.ToLower(strings.TrimSpace(v.GetString("BLOB_BACKEND"))),
		BucketName:               strings.TrimSpace(v.GetString("BUCKET_NAME")),
		BucketRegion:             strings.TrimSpace(v.GetString("BUCKET_REGION")),
		AccessKey:                strings.TrimSpace(v.GetString("ACCESS_KEY")),
		SecretAccessKey:          strings.TrimSpace(v.GetString("SECRET_ACCESS_KEY")),
		S3Endpoint:               strings.TrimSpace(v.GetString("S3_ENDPOINT")),
		S3UseSSL:                 v.GetBool("S3_USE_SSL"),
		GCSSignerEmail:           strings.TrimSpace(v.GetString("GCS_SIGNER_EMAIL")),
		UploadConcurrency:        v.GetInt("UPLOAD_CONCURRENCY"),
		KeyNamespaces:            v.GetBool("KEY_NAMESPACES"),
		MaxUploadBytes:           v.GetInt64("MAX_UPLOAD_BYTES"),
		AllowedOrigins:           splitList(v.GetString("ALLOWED_ORIGINS")),
		LogMode:                  strings.ToLower(strings.TrimSpace(v.GetString("LOG_MODE"))),
		LogFile:                  strings.TrimSpace(v.GetString("LOG_FILE")),
	}

	var err error
	if cfg.SignedURLTTL, err = duration(v.GetString("SIGNED_URL_TTL")); err != nil {
		return nil, fmt.Errorf("config: SIGNED_URL_TTL: %w", err)
	}
	if cfg.RequestTimeout, err = duration(v.GetString("REQUEST_TIMEOUT")); err != nil {
		return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
	}
	if cfg.CompensationTimeout, err = duration(v.GetString("COMPENSATION_TIMEOUT")); err != nil {
		return nil, fmt.Errorf("config: COMPENSATION_TIMEOUT: %w", err)
	}
	if cfg.FirestoreCredentialsFile == "" {
		cfg.FirestoreCredentialsFile = cfg.GoogleCredentialsFile
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.CatalogStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for CATALOG_STORE=postgres")
		}
	case StoreFirestore:
		if c.GCPProjectID == "" {
			return errors.New("config: GCP_PROJECT_ID is required for CATALOG_STORE=firestore")
		}
	default:
		return fmt.Errorf("config: unknown CATALOG_STORE %q", c.CatalogStore)
	}

	switch c.BlobBackend {
	case BlobGCS, BlobS3:
		if c.BucketName == "" {
			return fmt.Errorf("config: BUCKET_NAME is required for BLOB_BACKEND=%s", c.BlobBackend)
		}
	case BlobMemory:
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.SignedURLTTL <= 0 {
		return errors.New("config: SIGNED_URL_TTL must be positive")
	}
	return nil
}

// duration accepts Go durations ("90s", "1h") and bare seconds ("3600").
func duration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
