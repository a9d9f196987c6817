// internal/infra/config/secrets.go
//
// "sm://" で始まる設定値を Secret Manager から解決する。
//
//	sm://db-url                                   → projects/{GCP_PROJECT_ID}/secrets/db-url/versions/latest
//	sm://projects/p/secrets/db-url                → .../versions/latest
//	sm://projects/p/secrets/db-url/versions/3     → そのまま
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

const secretPrefix = "sm://"

// SecretAccessor fetches the payload of a secret version.
type SecretAccessor interface {
	Access(ctx context.Context, name string) (string, error)
}

// SecretManager is the Secret Manager backed SecretAccessor.
type SecretManager struct {
	Client *secretmanager.Client
}

func NewSecretManager(ctx context.Context) (*SecretManager, error) {
	c, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("config: secret manager client: %w", err)
	}
	return &SecretManager{Client: c}, nil
}

func (s *SecretManager) Access(ctx context.Context, name string) (string, error) {
	res, err := s.Client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	if res == nil || res.Payload == nil {
		return "", fmt.Errorf("secret %s has no payload", name)
	}
	return strings.TrimSpace(string(res.Payload.Data)), nil
}

func (s *SecretManager) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

// HasSecretRefs reports whether any field needs ResolveSecrets.
func (c *Config) HasSecretRefs() bool {
	for _, p := range c.secretFields() {
		if strings.HasPrefix(*p, secretPrefix) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every "sm://" value in place. It runs once at
// startup; all failures are reported together.
func (c *Config) ResolveSecrets(ctx context.Context, sa SecretAccessor) error {
	var errs []error
	for _, p := range c.secretFields() {
		ref, ok := strings.CutPrefix(*p, secretPrefix)
		if !ok {
			continue
		}
		name, err := secretName(ref, c.GCPProjectID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		v, err := sa.Access(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: resolve %s: %w", name, err))
			continue
		}
		*p = v
	}
	return errors.Join(errs...)
}

func (c *Config) secretFields() []*string {
	return []*string{
		&c.DatabaseURL,
		&c.AccessKey,
		&c.SecretAccessKey,
		&c.GCSSignerEmail,
		&c.BucketName,
	}
}

func secretName(ref, projectID string) (string, error) {
	ref = strings.Trim(strings.TrimSpace(ref), "/")
	if ref == "" {
		return "", errors.New("config: empty secret reference")
	}
	if strings.HasPrefix(ref, "projects/") {
		if !strings.Contains(ref, "/versions/") {
			ref += "/versions/latest"
		}
		return ref, nil
	}
	if projectID == "" {
		return "", fmt.Errorf("config: secret %q needs GCP_PROJECT_ID", ref)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, ref), nil
}
