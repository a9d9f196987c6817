// internal/adapters/in/http/handlers/common/common_handler.go
//
// Responsibility:
// - JSON レスポンスの書き出しと、エラー → HTTP ステータスの対応付け。
package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	assetdom "storefront/internal/domain/asset"
)

// Envelope is the body of every response.
//
// PendingCleanup is set when the request succeeded but some blobs it
// should have removed are still stored. UnresolvedImages lists keys whose
// signed URL could not be issued; their URL in Data is empty.
type Envelope struct {
	Data             any      `json:"data,omitempty"`
	Error            string   `json:"error,omitempty"`
	PendingCleanup   []string `json:"pendingCleanup,omitempty"`
	UnresolvedImages []string `json:"unresolvedImages,omitempty"`
}

// ------------------------------
// Writers
// ------------------------------

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Error: msg})
}

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, msg)
}

// WriteErr maps err onto a status code and writes it.
func WriteErr(w http.ResponseWriter, err error) {
	Error(w, StatusOf(err), err.Error())
}

// WriteResult writes data with status when err is nil. When err only
// carries *PartialBatchFailure values that were not rolled back the
// request still succeeded: data is written with status, keys left behind
// by deletes go to pendingCleanup and keys that could not be signed go
// to unresolvedImages. Anything else goes through WriteErr.
func WriteResult(w http.ResponseWriter, status int, data any, err error) {
	if err == nil {
		WriteJSON(w, status, Envelope{Data: data})
		return
	}
	partials, ok := assetdom.OnlyPartial(err)
	if !ok {
		WriteErr(w, err)
		return
	}
	env := Envelope{Data: data}
	for _, p := range partials {
		if p.Op == assetdom.OpResolve {
			env.UnresolvedImages = append(env.UnresolvedImages, p.FailedKeys...)
			continue
		}
		env.PendingCleanup = append(env.PendingCleanup, p.FailedKeys...)
	}
	WriteJSON(w, status, env)
}

// StatusOf は asset のエラー分類を HTTP ステータスへ対応付ける。
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, assetdom.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, assetdom.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, assetdom.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, assetdom.ErrUploadFailed), errors.Is(err, assetdom.ErrRejected):
		return http.StatusBadGateway
	case errors.Is(err, assetdom.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case IsNotSupported(err):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// ------------------------------
// Utility functions
// ------------------------------

// MethodNotAllowed writes 405 response.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "method_not_allowed")
}

// NotFound writes 404 response for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Error(w, http.StatusNotFound, "not_found")
}

// IsNotSupported checks error message for "not supported".
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not supported")
}
