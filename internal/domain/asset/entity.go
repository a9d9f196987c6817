// internal/domain/asset/entity.go
package asset

import (
	"path"
	"strings"
	"time"
)

// DefaultSignedURLTTL is the read-URL lifetime used when nothing is configured.
const DefaultSignedURLTTL = 3600 * time.Second

// Namespace is the logical partition of a shared bucket.
type Namespace string

const (
	NamespaceNone       Namespace = ""
	NamespaceCategories Namespace = "categories"
	NamespaceProducts   Namespace = "products"
)

// Policy
var (
	AllowedExtensions = map[string]struct{}{
		".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}, ".avif": {},
	}
	DefaultMaxFileSize int64 = 20 * 1024 * 1024 // 20MB
)

// File is one binary payload accepted for upload.
type File struct {
	Name        string // original file name (extension is preserved in the key)
	ContentType string // optional; detected from the bytes when empty
	Data        []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// Ext returns the lower-cased extension of the original file name.
func (f File) Ext() string {
	return strings.ToLower(path.Ext(strings.TrimSpace(f.Name)))
}

// Validate checks the payload against the upload policy.
// maxBytes <= 0 falls back to DefaultMaxFileSize.
func (f File) Validate(maxBytes int64) error {
	if strings.TrimSpace(f.Name) == "" {
		return Validationf("file name is required")
	}
	if len(f.Data) == 0 {
		return Validationf("file %q is empty", f.Name)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}
	if f.Size() > maxBytes {
		return Validationf("file %q too large: %d bytes (max %d)", f.Name, f.Size(), maxBytes)
	}
	if ext := f.Ext(); ext != "" {
		if _, ok := AllowedExtensions[ext]; !ok {
			return Validationf("file %q has unsupported extension %s", f.Name, ext)
		}
	}
	return nil
}

// UploadKind tags an UploadInput.
type UploadKind int

const (
	KindExistingKey UploadKind = iota + 1
	KindNewFile
)

// UploadInput is either a key that is already stored or a new file to
// upload. It is resolved once at the HTTP boundary; nothing downstream
// inspects the payload type again.
type UploadInput struct {
	Kind UploadKind
	Key  string
	File File
}

// ExistingKey wraps an already-stored key.
func ExistingKey(key string) UploadInput {
	return UploadInput{Kind: KindExistingKey, Key: strings.TrimSpace(key)}
}

// NewFile wraps a fresh payload.
func NewFile(name string, data []byte, contentType string) UploadInput {
	return UploadInput{
		Kind: KindNewFile,
		File: File{Name: strings.TrimSpace(name), Data: data, ContentType: strings.TrimSpace(contentType)},
	}
}

func (in UploadInput) IsNew() bool { return in.Kind == KindNewFile }

// FilesOf keeps only the NewFile inputs, in order.
func FilesOf(inputs []UploadInput) []File {
	out := make([]File, 0, len(inputs))
	for _, in := range inputs {
		if in.IsNew() {
			out = append(out, in.File)
		}
	}
	return out
}

// SignedURL is a transient read view of a key. Never persisted.
type SignedURL struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// URLs flattens signed URLs into plain strings (empty for unresolved).
func URLs(in []SignedURL) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = s.URL
	}
	return out
}
