// internal/adapters/out/memblob/blobstore_mem.go
//
// In-process BlobStore for local development (BLOB_BACKEND=memory) and
// tests. Fault hooks let tests fail individual calls.
package memblob

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	assetdom "storefront/internal/domain/asset"
)

// Object is a stored payload.
type Object struct {
	Data        []byte
	ContentType string
}

// Hook is consulted before an operation runs. A non-nil error is returned
// to the caller and the operation is skipped.
type Hook func(key string) error

type Store struct {
	Bucket string

	// PutHook, SignHook and DeleteHook may be replaced at any time.
	PutHook    Hook
	SignHook   Hook
	DeleteHook Hook
	// PutDelay slows every Put (cancellation tests).
	PutDelay time.Duration

	mu      sync.Mutex
	objects map[string]Object
	calls   map[string]int
}

func New(bucket string) *Store {
	if strings.TrimSpace(bucket) == "" {
		bucket = "local"
	}
	return &Store{
		Bucket:  bucket,
		objects: make(map[string]Object),
		calls:   make(map[string]int),
	}
}

func (s *Store) hook(h func() Hook, key string) error {
	s.mu.Lock()
	fn := h()
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(key)
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.count("put")
	if err := s.hook(func() Hook { return s.PutHook }, key); err != nil {
		return err
	}
	if d := s.delay(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: buf, ContentType: contentType}
	return nil
}

func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.count("sign")
	if err := s.hook(func() Hook { return s.SignHook }, key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", assetdom.ErrNotFound)
	}
	exp := time.Now().UTC().Add(ttl).Unix()
	return fmt.Sprintf("mem://%s/%s?expires=%d", s.Bucket, url.PathEscape(key), exp), nil
}

// Delete of an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.count("delete")
	if err := s.hook(func() Hook { return s.DeleteHook }, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// ==============================
// Inspection helpers
// ==============================

func (s *Store) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *Store) Exists(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys returns every stored key, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Calls reports how many times op ("put", "sign", "delete") was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SetHooks replaces the hooks under the lock.
func (s *Store) SetHooks(put, sign, del Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutHook, s.SignHook, s.DeleteHook = put, sign, del
}

func (s *Store) count(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
}

func (s *Store) delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PutDelay
}

// FailOn returns a Hook that fails with err for keys matching pred.
func FailOn(pred func(key string) bool, err error) Hook {
	return func(key string) error {
		if pred(key) {
			return err
		}
		return nil
	}
}
