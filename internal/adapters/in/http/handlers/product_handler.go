// internal/adapters/in/http/handlers/product_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"storefront/internal/adapters/in/http/handlers/common"
	assetuc "storefront/internal/application/usecase/asset"
	"storefront/internal/application/usecase/catalog"
	assetdom "storefront/internal/domain/asset"
	productdom "storefront/internal/domain/product"
)

// ProductService is what ProductHandler needs from the catalog facade.
type ProductService interface {
	CreateProduct(ctx context.Context, in catalog.CreateProductInput, images []assetdom.File) (catalog.ProductView, error)
	UpdateProduct(ctx context.Context, id string, in catalog.UpdateProductInput) (catalog.ProductView, error)
	RemoveProductImage(ctx context.Context, id, key string) (catalog.ProductView, error)
	DeleteProduct(ctx context.Context, id string, mode catalog.DeleteMode) (productdom.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.ProductView, error)
	ListProducts(ctx context.Context, q catalog.ProductQuery) (productdom.PageResult[catalog.ProductView], error)
	CartImage(ctx context.Context, id string) (assetdom.SignedURL, error)
}

// ProductHandler は /api/products 関連のエンドポイントを担当します。
//
// 画像の扱い:
//   - PATCH /{id}        : "images" のファイルを末尾に追加（Append）
//   - PUT   /{id}/images : "image" パートの順序どおりに置き換え（Replace）
type ProductHandler struct {
	svc ProductService
}

func NewProductHandler(svc ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// Routes mounts the handler under /api/products.
func (h *ProductHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/cart-image", h.cartImage)
	r.Put("/{id}/images", h.replaceImages)
	// keys may contain "/" when namespaced
	r.Delete("/{id}/images/*", h.removeImage)
}

// ==============================
// Queries
// ==============================

// GET /api/products?limit&page&exclude&categoryId&available
func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pq := catalog.ProductQuery{
		CategoryID: q.Get("categoryId"),
		ExcludeID:  q.Get("exclude"),
		Limit:      parseIntDefault(q.Get("limit"), 0),
		Page:       parseIntDefault(q.Get("page"), 1),
	}
	if v, ok := parseBool(q.Get("available")); ok {
		pq.OnlyAvailable = v
	}

	res, err := h.svc.ListProducts(r.Context(), pq)
	if res.Items == nil {
		res.Items = []catalog.ProductView{}
	}
	common.WriteResult(w, http.StatusOK, map[string]any{
		"items":      res.Items,
		"totalCount": res.TotalCount,
		"totalPages": res.TotalPages,
		"page":       res.Page,
		"perPage":    res.PerPage,
	}, err)
}

// GET /api/products/{id}
func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	pv, err := h.svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	common.WriteResult(w, http.StatusOK, pv, err)
}

// GET /api/products/{id}/cart-image
func (h *ProductHandler) cartImage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CartImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	common.OK(w, u)
}

// ==============================
// Commands
// ==============================

// POST /api/products  multipart(fields..., images)
func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		common.WriteErr(w, err)
		return
	}

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		common.BadRequest(w, "invalid price")
		return
	}
	in := catalog.CreateProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Price:       price,
		CategoryID:  r.FormValue("categoryId"),
		Tags:        listValues(r.MultipartForm.Value["tags"]),
		Notes:       r.MultipartForm.Value["notes"],
		Quality:     productdom.Quality(strings.TrimSpace(r.FormValue("quality"))),
	}
	if v, ok := parseBool(r.FormValue("isAvailable")); ok {
		in.IsAvailable = &v
	}

	images, err := formFiles(r, "images")
	if err != nil {
		common.WriteErr(w, err)
		return
	}

	pv, err := h.svc.CreateProduct(r.Context(), in, images)
	common.WriteResult(w, http.StatusCreated, pv, err)
}

// PATCH /api/products/{id}  multipart(fields?, images?); new images are appended
func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		common.WriteErr(w, err)
		return
	}
	form := r.MultipartForm.Value

	var patch productdom.ProductPatch
	if vs, ok := form["name"]; ok {
		patch.Name = &vs[0]
	}
	if vs, ok := form["description"]; ok {
		patch.Description = &vs[0]
	}
	if vs, ok := form["price"]; ok {
		p, err := decimal.NewFromString(strings.TrimSpace(vs[0]))
		if err != nil {
			common.BadRequest(w, "invalid price")
			return
		}
		patch.Price = &p
	}
	if vs, ok := form["categoryId"]; ok {
		patch.CategoryID = &vs[0]
	}
	if vs, ok := form["tags"]; ok {
		tags := listValues(vs)
		patch.Tags = &tags
	}
	if vs, ok := form["notes"]; ok {
		notes := append([]string(nil), vs...)
		patch.Notes = &notes
	}
	if vs, ok := form["quality"]; ok {
		q := productdom.Quality(strings.TrimSpace(vs[0]))
		patch.Quality = &q
	}
	if vs, ok := form["isAvailable"]; ok {
		b, valid := parseBool(vs[0])
		if !valid {
			common.BadRequest(w, "invalid isAvailable")
			return
		}
		patch.IsAvailable = &b
	}

	files, err := formFiles(r, "images")
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	version, err := ifMatch(r.Header.Get("If-Match"), r.FormValue("version"))
	if err != nil {
		common.BadRequest(w, "invalid version")
		return
	}

	in := catalog.UpdateProductInput{Patch: patch, IfMatchVersion: version}
	if len(files) > 0 {
		in.Mode = assetuc.ModeAppend
		in.Images = make([]assetdom.UploadInput, len(files))
		for i, f := range files {
			in.Images[i] = assetdom.NewFile(f.Name, f.Data, f.ContentType)
		}
	}
	if patch.Empty() && len(in.Images) == 0 {
		common.BadRequest(w, "nothing to update")
		return
	}

	pv, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	common.WriteResult(w, http.StatusOK, pv, err)
}

// PUT /api/products/{id}/images  ordered "image" parts, replaces the list
func (h *ProductHandler) replaceImages(w http.ResponseWriter, r *http.Request) {
	inputs, err := orderedImageInputs(r, "image")
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	version, err := ifMatch(r.Header.Get("If-Match"), "")
	if err != nil {
		common.BadRequest(w, "invalid version")
		return
	}

	pv, err := h.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), catalog.UpdateProductInput{
		Images:         inputs,
		Mode:           assetuc.ModeReplace,
		IfMatchVersion: version,
	})
	common.WriteResult(w, http.StatusOK, pv, err)
}

// DELETE /api/products/{id}/images/{key}
func (h *ProductHandler) removeImage(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "*"))
	if key == "" {
		common.BadRequest(w, "image key is required")
		return
	}
	pv, err := h.svc.RemoveProductImage(r.Context(), chi.URLParam(r, "id"), key)
	common.WriteResult(w, http.StatusOK, pv, err)
}

// DELETE /api/products/{id}?mode=soft
func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	mode := catalog.DeleteHard
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode"))) {
	case "", "hard":
	case "soft":
		mode = catalog.DeleteSoft
	default:
		common.BadRequest(w, "mode must be hard or soft")
		return
	}

	p, err := h.svc.DeleteProduct(r.Context(), chi.URLParam(r, "id"), mode)
	common.WriteResult(w, http.StatusOK, p, err)
}
