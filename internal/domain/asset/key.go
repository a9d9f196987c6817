// internal/domain/asset/key.go
package asset

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// KeyGenerator mints object keys.
type KeyGenerator interface {
	NewKey(originalName string, ns Namespace) string
}

// UUIDKeys produces "{uuid}{.ext}" keys, or "{namespace}/{uuid}{.ext}"
// when namespacing is enabled.
type UUIDKeys struct {
	Namespaced bool
}

func (g UUIDKeys) NewKey(originalName string, ns Namespace) string {
	if !g.Namespaced {
		ns = NamespaceNone
	}
	return NewKey(originalName, ns)
}

// NewKey returns a fresh key for originalName. Two calls with the same
// name never return the same key (uuid v4, 122 random bits).
func NewKey(originalName string, ns Namespace) string {
	id := uuid.NewString()
	key := id + sanitizeExt(path.Ext(strings.TrimSpace(originalName)))
	if p := sanitizeSegment(string(ns)); p != "" {
		return p + "/" + key
	}
	return key
}

// KeyFor generates a key for f. When the original name has no extension
// one is inferred from the bytes so that content type survives.
func KeyFor(g KeyGenerator, f File, ns Namespace) string {
	name := f.Name
	if path.Ext(name) == "" && len(f.Data) > 0 {
		name += mimetype.Detect(f.Data).Extension()
	}
	return g.NewKey(name, ns)
}

// ContentTypeOf returns f.ContentType or the type detected from its bytes.
func ContentTypeOf(f File) string {
	if ct := strings.TrimSpace(f.ContentType); ct != "" {
		return ct
	}
	if len(f.Data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(f.Data).String()
}

// sanitizeExt keeps ".ext" only when it is a plain alphanumeric suffix.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if len(ext) < 2 || len(ext) > 10 || ext[0] != '.' {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

// sanitizeSegment normalizes a namespace for object paths.
// - removes separators
// - trims dots/spaces
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.Trim(s, ". ")
}
