// internal/adapters/out/firestore/helper_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	common "storefront/internal/domain/common"
)

var errNilClient = errors.New("firestore client is nil")

// mapErr converts gRPC status codes into the repository's sentinels.
func mapErr(err, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return notFound
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %v", conflict, err)
	}
	return err
}

// collect drains a document iterator through decode.
func collect[T any](iter *gfs.DocumentIterator, decode func(*gfs.DocumentSnapshot) (T, error)) ([]T, error) {
	defer iter.Stop()
	var out []T
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// paginate slices an already filtered and sorted result set.
// Firestore cannot express every filter server-side, so paging happens
// after filtering.
func paginate[T any](all []T, page common.Page, def, max int) common.PageResult[T] {
	number, limit, offset := common.NormalizePage(page, def, max)
	total := len(all)
	items := []T{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		items = all[offset:end]
	}
	return common.PageResult[T]{
		Items:      items,
		TotalCount: total,
		TotalPages: common.TotalPages(total, limit),
		Page:       number,
		PerPage:    limit,
	}
}

// getAll fetches documents by id, skipping missing ones.
func getAll[T any](ctx context.Context, c *gfs.Client, col string, ids []string, decode func(*gfs.DocumentSnapshot) (T, error)) ([]T, error) {
	refs := make([]*gfs.DocumentRef, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			refs = append(refs, c.Collection(col).Doc(id))
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	snaps, err := c.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(snaps))
	for _, s := range snaps {
		if !s.Exists() {
			continue
		}
		v, err := decode(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func sortDesc(o common.SortOrder) bool {
	return strings.EqualFold(string(o), string(common.SortDesc))
}
