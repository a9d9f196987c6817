// internal/application/usecase/asset/image_update.go
//
// Responsibility:
// - 既存キー列と入力（既存キー / 新規ファイル）から新しいキー列を組み立てる。
// - 古いキーの削除は行更新の確定後（Commit）まで遅延する。
package asset

import (
	"context"

	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
)

// ImageUpdate is the outcome of ReplaceOrAppendImages. The new blobs are
// already stored; nothing has been deleted yet.
//
// The caller persists Keys and then calls exactly one of Commit (row write
// confirmed) or Rollback (row write failed).
type ImageUpdate struct {
	Keys     []string // the image list to persist, in order
	Uploaded []string // keys written by this update
	Stale    []string // keys dropped from the list, deleted on Commit

	c    *Coordinator
	done bool
}

// Commit deletes the stale keys. A failure is best-effort: the returned
// *PartialBatchFailure lists the orphans and the row is still correct.
func (u *ImageUpdate) Commit(ctx context.Context) error {
	if u == nil || u.done {
		return nil
	}
	u.done = true
	if len(u.Stale) == 0 {
		return nil
	}
	return u.c.DeleteAssetsOf(ctx, u.Stale)
}

// Rollback removes the freshly uploaded keys and returns the ones that
// could not be removed.
func (u *ImageUpdate) Rollback(ctx context.Context) []string {
	if u == nil || u.done {
		return nil
	}
	u.done = true
	return u.c.Discard(ctx, u.Uploaded)
}

// ReplaceOrAppendImages computes the next image list of a row.
//
//   - ModeAppend: every input must be a new file; Keys = existing + uploaded.
//   - ModeReplace: Keys follow the inputs in order. An ExistingKey input must
//     be one of existing; Stale = existing minus Keys.
//
// All inputs are checked before anything is uploaded. On upload failure
// nothing is left behind and existing is untouched.
func (c *Coordinator) ReplaceOrAppendImages(
	ctx context.Context,
	existing []string,
	inputs []assetdom.UploadInput,
	mode Mode,
	ns assetdom.Namespace,
) (*ImageUpdate, error) {
	if err := checkInputs(existing, inputs, mode); err != nil {
		return nil, err
	}

	uploaded, err := c.UploadMany(ctx, assetdom.FilesOf(inputs), ns)
	if err != nil {
		return nil, err
	}

	u := &ImageUpdate{Uploaded: uploaded, c: c}
	switch mode {
	case ModeAppend:
		u.Keys = make([]string, 0, len(existing)+len(uploaded))
		u.Keys = append(u.Keys, existing...)
		u.Keys = append(u.Keys, uploaded...)
	case ModeReplace:
		u.Keys = make([]string, 0, len(inputs))
		next := 0
		for _, in := range inputs {
			if in.IsNew() {
				u.Keys = append(u.Keys, uploaded[next])
				next++
				continue
			}
			u.Keys = append(u.Keys, in.Key)
		}
		keep := make(map[string]struct{}, len(u.Keys))
		for _, k := range u.Keys {
			keep[k] = struct{}{}
		}
		for _, k := range existing {
			if _, ok := keep[k]; !ok {
				u.Stale = append(u.Stale, k)
			}
		}
	}

	c.log.Debug("image list computed",
		zap.Stringer("mode", mode),
		zap.Strings("keys", u.Keys),
		zap.Strings("stale", u.Stale),
	)
	return u, nil
}

func checkInputs(existing []string, inputs []assetdom.UploadInput, mode Mode) error {
	switch mode {
	case ModeAppend:
		for i, in := range inputs {
			if !in.IsNew() {
				return assetdom.Validationf("append: input %d is an existing key", i)
			}
		}
		return nil
	case ModeReplace:
		if len(inputs) == 0 {
			return assetdom.Validationf("replace: at least one image is required")
		}
		owned := make(map[string]struct{}, len(existing))
		for _, k := range existing {
			owned[k] = struct{}{}
		}
		seen := make(map[string]struct{}, len(inputs))
		for i, in := range inputs {
			switch in.Kind {
			case assetdom.KindNewFile:
			case assetdom.KindExistingKey:
				if in.Key == "" {
					return assetdom.Validationf("replace: input %d has an empty key", i)
				}
				if _, ok := owned[in.Key]; !ok {
					return assetdom.Validationf("replace: key %q is not an image of this item", in.Key)
				}
				if _, dup := seen[in.Key]; dup {
					return assetdom.Validationf("replace: key %q listed twice", in.Key)
				}
				seen[in.Key] = struct{}{}
			default:
				return assetdom.Validationf("replace: input %d has no kind", i)
			}
		}
		return nil
	default:
		return assetdom.Validationf("unknown image mode %d", int(mode))
	}
}
