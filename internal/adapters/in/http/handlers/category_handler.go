// internal/adapters/in/http/handlers/category_handler.go
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"storefront/internal/adapters/in/http/handlers/common"
	"storefront/internal/application/usecase/catalog"
	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
)

// CategoryService is what CategoryHandler needs from the catalog facade.
type CategoryService interface {
	CreateCategory(ctx context.Context, name string, image assetdom.File) (catalog.CategoryView, error)
	UpdateCategory(ctx context.Context, id string, name *string, image *assetdom.File) (catalog.CategoryView, error)
	DeleteCategory(ctx context.Context, id string) (catdom.Category, error)
	GetCategory(ctx context.Context, id string) (catalog.CategoryView, error)
	ListCategories(ctx context.Context, excludeName string) ([]catalog.CategoryView, error)
	CategoryWithProducts(ctx context.Context, id string) (catalog.CategoryWithProducts, error)
}

// CategoryHandler は /api/categories 関連のエンドポイントを担当します。
type CategoryHandler struct {
	svc CategoryService
}

func NewCategoryHandler(svc CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// Routes mounts the handler under /api/categories.
func (h *CategoryHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/products", h.withProducts)
}

// POST /api/categories  multipart(name, image)
func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		common.WriteErr(w, err)
		return
	}
	image, ok, err := formFile(r, "image")
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	if !ok {
		common.BadRequest(w, "image is required")
		return
	}

	cv, err := h.svc.CreateCategory(r.Context(), r.FormValue("name"), image)
	common.WriteResult(w, http.StatusCreated, cv, err)
}

// GET /api/categories?exclude=name
func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListCategories(r.Context(), r.URL.Query().Get("exclude"))
	if items == nil {
		items = []catalog.CategoryView{}
	}
	common.WriteResult(w, http.StatusOK, items, err)
}

// GET /api/categories/{id}
func (h *CategoryHandler) get(w http.ResponseWriter, r *http.Request) {
	cv, err := h.svc.GetCategory(r.Context(), chi.URLParam(r, "id"))
	common.WriteResult(w, http.StatusOK, cv, err)
}

// GET /api/categories/{id}/products
func (h *CategoryHandler) withProducts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CategoryWithProducts(r.Context(), chi.URLParam(r, "id"))
	common.WriteResult(w, http.StatusOK, res, err)
}

// PATCH /api/categories/{id}  multipart(name?, image?)
func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		common.WriteErr(w, err)
		return
	}

	var name *string
	if vs, ok := r.MultipartForm.Value["name"]; ok && len(vs) > 0 {
		n := strings.TrimSpace(vs[0])
		name = &n
	}
	var image *assetdom.File
	f, ok, err := formFile(r, "image")
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	if ok {
		image = &f
	}
	if name == nil && image == nil {
		common.BadRequest(w, "nothing to update")
		return
	}

	cv, err := h.svc.UpdateCategory(r.Context(), chi.URLParam(r, "id"), name, image)
	common.WriteResult(w, http.StatusOK, cv, err)
}

// DELETE /api/categories/{id}
func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	common.WriteResult(w, http.StatusOK, c, err)
}
