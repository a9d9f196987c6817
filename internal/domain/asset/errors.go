// internal/domain/asset/errors.go
package asset

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the blob stores, the coordinator and the catalog
// facade. Repositories re-export ErrNotFound / ErrConflict so that
// errors.Is works across layers.
var (
	ErrUploadFailed       = errors.New("asset: upload failed")
	ErrNotFound           = errors.New("asset: not found")
	ErrConflict           = errors.New("asset: conflict")
	ErrValidation         = errors.New("asset: validation failed")
	ErrStorageUnavailable = errors.New("asset: storage unavailable")
	ErrRejected           = errors.New("asset: rejected by storage")
	ErrPartialBatch       = errors.New("asset: partial batch failure")
)

// Batch operation names reported in PartialBatchFailure.Op.
const (
	OpUpload  = "upload"
	OpResolve = "resolve"
	OpDelete  = "delete"
)

// PartialBatchFailure reports a batch in which some, but not all,
// sub-operations failed.
//
//   - RolledBack=true: the batch partially happened and was undone
//     (UploadMany rollback). Nothing the batch wrote is left behind.
//   - RolledBack=false: the batch partially happened and was NOT undone
//     (best-effort deletions, URL resolution). FailedKeys lists what is
//     left for a retry or manual cleanup.
//
// RollbackLeftovers lists keys a rollback itself failed to delete.
type PartialBatchFailure struct {
	Op                string
	FailedKeys        []string
	FailedIndices     []int
	RolledBack        bool
	RollbackLeftovers []string
	Cause             error
}

func (e *PartialBatchFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "asset: %s batch: %d failed", e.Op, len(e.FailedIndices))
	if len(e.FailedKeys) > 0 {
		fmt.Fprintf(&b, " keys=%v", e.FailedKeys)
	}
	if e.RolledBack {
		b.WriteString(" (rolled back)")
	} else {
		b.WriteString(" (not rolled back)")
	}
	if len(e.RollbackLeftovers) > 0 {
		fmt.Fprintf(&b, " leftovers=%v", e.RollbackLeftovers)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both ErrPartialBatch and the underlying cause, so that
// errors.Is(err, ErrUploadFailed) holds for a failed upload batch.
func (e *PartialBatchFailure) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrPartialBatch}
	}
	return []error{ErrPartialBatch, e.Cause}
}

// AsPartial returns the *PartialBatchFailure carried by err, if any.
func AsPartial(err error) (*PartialBatchFailure, bool) {
	var pbf *PartialBatchFailure
	if errors.As(err, &pbf) {
		return pbf, true
	}
	return nil, false
}

// OnlyPartial reports whether err (possibly an errors.Join of several)
// is made up solely of *PartialBatchFailure values that were not rolled
// back, i.e. the operation succeeded and only left keys to report. It
// returns those failures in order.
func OnlyPartial(err error) ([]*PartialBatchFailure, bool) {
	if err == nil {
		return nil, false
	}
	var out []*PartialBatchFailure
	var walk func(error) bool
	walk = func(e error) bool {
		if pbf, ok := e.(*PartialBatchFailure); ok {
			out = append(out, pbf)
			return !pbf.RolledBack
		}
		switch u := e.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return false
			}
			for _, inner := range errs {
				if !walk(inner) {
					return false
				}
			}
			return true
		case interface{ Unwrap() error }:
			if inner := u.Unwrap(); inner != nil {
				return walk(inner)
			}
		}
		return false
	}
	if !walk(err) {
		return nil, false
	}
	return out, true
}

// Validationf builds an ErrValidation-wrapped error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
