// internal/adapters/in/http/handlers/multipart.go
//
// Responsibility:
// - multipart/form-data から assetdom.File / UploadInput を組み立てる。
// - 「新規ファイル or 既存キー」の判定はここで一度だけ行う。
package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	assetdom "storefront/internal/domain/asset"
)

// memory kept in RAM by ParseMultipartForm; the rest spills to temp files
const formMemory = 8 << 20

var errNoMultipart = errors.New("expected multipart/form-data")

func parseForm(r *http.Request) error {
	if err := r.ParseMultipartForm(formMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return assetdom.Validationf("%v", errNoMultipart)
		}
		return assetdom.Validationf("bad multipart body: %v", err)
	}
	return nil
}

// formFiles reads every file sent under field, in order.
func formFiles(r *http.Request, field string) ([]assetdom.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	hs := r.MultipartForm.File[field]
	out := make([]assetdom.File, 0, len(hs))
	for _, h := range hs {
		f, err := readHeader(h)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// formFile reads the single file under field; ok is false when absent.
func formFile(r *http.Request, field string) (assetdom.File, bool, error) {
	files, err := formFiles(r, field)
	if err != nil || len(files) == 0 {
		return assetdom.File{}, false, err
	}
	if len(files) > 1 {
		return assetdom.File{}, false, assetdom.Validationf("only one %q file is accepted", field)
	}
	return files[0], true, nil
}

func readHeader(h *multipart.FileHeader) (assetdom.File, error) {
	src, err := h.Open()
	if err != nil {
		return assetdom.File{}, assetdom.Validationf("open %q: %v", h.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return assetdom.File{}, assetdom.Validationf("read %q: %v", h.Filename, err)
	}
	return assetdom.File{
		Name:        strings.TrimSpace(h.Filename),
		ContentType: strings.TrimSpace(h.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// orderedImageInputs streams the parts named field and keeps their order:
// a file part becomes a new file, a plain value part an existing key.
// Parts with other names are ignored.
func orderedImageInputs(r *http.Request, field string) ([]assetdom.UploadInput, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, assetdom.Validationf("%v: %v", errNoMultipart, err)
	}

	var out []assetdom.UploadInput
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, assetdom.Validationf("bad multipart body: %v", err)
		}
		if part.FormName() != field {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, assetdom.Validationf("read part %d: %v", len(out), err)
		}
		if name := part.FileName(); name != "" {
			out = append(out, assetdom.NewFile(name, data, part.Header.Get("Content-Type")))
			continue
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, assetdom.Validationf("part %d: empty key", len(out))
		}
		out = append(out, assetdom.ExistingKey(key))
	}
	if len(out) == 0 {
		return nil, assetdom.Validationf("no %q parts", field)
	}
	return out, nil
}
