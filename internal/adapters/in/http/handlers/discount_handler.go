// internal/adapters/in/http/handlers/discount_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/adapters/in/http/handlers/common"
	usecase "storefront/internal/application/usecase"
	discountdom "storefront/internal/domain/discount"
)

// DiscountService is what DiscountHandler needs from the discount usecase.
type DiscountService interface {
	List(ctx context.Context, activeOnly bool) ([]discountdom.Discount, error)
	GetByID(ctx context.Context, id string) (discountdom.Discount, error)
	GetByName(ctx context.Context, name string) (discountdom.Discount, error)
	Create(ctx context.Context, in usecase.CreateDiscountInput) (discountdom.Discount, error)
	Delete(ctx context.Context, id string) error
}

// DiscountHandler は /api/discounts 関連のエンドポイントを担当します。
type DiscountHandler struct {
	uc DiscountService
}

func NewDiscountHandler(uc DiscountService) *DiscountHandler {
	return &DiscountHandler{uc: uc}
}

func (h *DiscountHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	// GET は id か name、DELETE は id で引く（chi はセグメントごとに param 名を共有する）
	r.Get("/{ref}", h.get)
	r.Delete("/{ref}", h.delete)
}

type createDiscountRequest struct {
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	ValidUntil string          `json:"validUntil"`
}

// POST /api/discounts  {"name","total","validUntil"}
func (h *DiscountHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.BadRequest(w, "invalid json")
		return
	}
	until, err := parseRFC3339Ptr(req.ValidUntil)
	if err != nil {
		common.BadRequest(w, "validUntil must be RFC3339")
		return
	}

	d, err := h.uc.Create(r.Context(), usecase.CreateDiscountInput{
		Name:       req.Name,
		Total:      req.Total,
		ValidUntil: until,
	})
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	common.Created(w, d)
}

// GET /api/discounts?active=true
func (h *DiscountHandler) list(w http.ResponseWriter, r *http.Request) {
	active, _ := parseBool(r.URL.Query().Get("active"))
	items, err := h.uc.List(r.Context(), active)
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	if items == nil {
		items = []discountdom.Discount{}
	}
	common.OK(w, items)
}

// GET /api/discounts/{ref}
// ref が UUID なら ID で、それ以外は名前で引く（名前引きは期限切れを 404 にする）。
func (h *DiscountHandler) get(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSpace(chi.URLParam(r, "ref"))
	var (
		d   discountdom.Discount
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		d, err = h.uc.GetByID(r.Context(), ref)
	} else {
		d, err = h.uc.GetByName(r.Context(), ref)
	}
	if err != nil {
		common.WriteErr(w, err)
		return
	}
	common.OK(w, d)
}

// DELETE /api/discounts/{id}
func (h *DiscountHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Delete(r.Context(), chi.URLParam(r, "ref")); err != nil {
		common.WriteErr(w, err)
		return
	}
	common.NoContent(w)
}
