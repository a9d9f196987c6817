package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/adapters/out/memblob"
	assetuc "storefront/internal/application/usecase/asset"
	"storefront/internal/application/usecase/catalog"
	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

type seqKeys struct{ n atomic.Int64 }

func (g *seqKeys) NewKey(name string, ns assetdom.Namespace) string {
	k := fmt.Sprintf("%d-%s", g.n.Add(1), name)
	if ns != "" {
		return string(ns) + "/" + k
	}
	return k
}

var errBoom = errors.New("boom")

type fixture struct {
	svc   *catalog.Service
	store *memblob.Store
	cats  *memCategories
	prods *memProducts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memblob.New("test")
	coord := assetuc.NewCoordinator(store, assetuc.Options{
		Keys:                &seqKeys{},
		Concurrency:         2,
		CompensationTimeout: time.Second,
	})
	prods := newMemProducts()
	cats := newMemCategories()
	cats.products = prods
	return &fixture{
		svc:   catalog.NewService(cats, prods, coord, nil),
		store: store,
		cats:  cats,
		prods: prods,
	}
}

func img(name string) assetdom.File {
	return assetdom.File{Name: name, Data: []byte("bytes of " + name)}
}

func (f *fixture) category(t *testing.T, name string) catalog.CategoryView {
	t.Helper()
	cv, err := f.svc.CreateCategory(context.Background(), name, img(name+".png"))
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return cv
}

func (f *fixture) product(t *testing.T, categoryID string, images ...string) catalog.ProductView {
	t.Helper()
	files := make([]assetdom.File, len(images))
	for i, n := range images {
		files[i] = img(n)
	}
	pv, err := f.svc.CreateProduct(context.Background(), catalog.CreateProductInput{
		Name:       "Rose bouquet",
		Price:      decimal.RequireFromString("49.90"),
		CategoryID: categoryID,
		Tags:       []string{" Red ", "red", "gift"},
	}, files)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return pv
}

// ==============================
// Category
// ==============================

func TestCreateCategory_StoresImageAndSignsIt(t *testing.T) {
	f := newFixture(t)

	cv := f.category(t, "Roses")

	if !f.store.Exists(cv.ImageKey) {
		t.Fatalf("image %q not stored", cv.ImageKey)
	}
	if cv.Image.Key != cv.ImageKey || cv.Image.URL == "" {
		t.Errorf("unexpected signed url %+v", cv.Image)
	}
}

func TestCreateCategory_RowFailureDiscardsUpload(t *testing.T) {
	f := newFixture(t)
	f.cats.failCreate = errBoom

	_, err := f.svc.CreateCategory(context.Background(), "Roses", img("roses.png"))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the row error, got %v", err)
	}
	if f.store.Calls("put") != 1 {
		t.Fatalf("expected one put, got %d", f.store.Calls("put"))
	}
	if f.store.Len() != 0 {
		t.Errorf("upload was not discarded: %v", f.store.Keys())
	}
}

func TestCreateCategory_DuplicateNameUploadsNothing(t *testing.T) {
	f := newFixture(t)
	f.category(t, "Roses")
	before := f.store.Calls("put")

	_, err := f.svc.CreateCategory(context.Background(), " Roses ", img("again.png"))
	if !errors.Is(err, assetdom.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.store.Calls("put") != before {
		t.Errorf("duplicate create must not upload")
	}
}

func TestCreateCategory_InvalidName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateCategory(context.Background(), "   ", img("x.png"))
	if !errors.Is(err, assetdom.ErrValidation) || !errors.Is(err, catdom.ErrInvalidName) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.store.Calls("put") != 0 {
		t.Errorf("invalid create must not upload")
	}
}

func TestUpdateCategory_SwapsImage(t *testing.T) {
	f := newFixture(t)
	old := f.category(t, "Roses")

	next := img("new.png")
	cv, err := f.svc.UpdateCategory(context.Background(), old.ID, nil, &next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cv.ImageKey == old.ImageKey {
		t.Fatalf("image key not replaced")
	}
	if f.store.Exists(old.ImageKey) {
		t.Errorf("old image %q should be deleted", old.ImageKey)
	}
	if !f.store.Exists(cv.ImageKey) {
		t.Errorf("new image %q missing", cv.ImageKey)
	}
}

func TestUpdateCategory_RowFailureKeepsOldImage(t *testing.T) {
	f := newFixture(t)
	old := f.category(t, "Roses")
	f.cats.failUpdate = errBoom

	next := img("new.png")
	_, err := f.svc.UpdateCategory(context.Background(), old.ID, nil, &next)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the row error, got %v", err)
	}
	if got := f.store.Keys(); len(got) != 1 || got[0] != old.ImageKey {
		t.Errorf("store should hold only the old image, has %v", got)
	}
}

func TestDeleteCategory_RefusedWhileProductsExist(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	f.product(t, c.ID, "a.jpg")

	_, err := f.svc.DeleteCategory(context.Background(), c.ID)
	if !errors.Is(err, assetdom.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !f.store.Exists(c.ImageKey) {
		t.Errorf("image of a kept category must survive")
	}
}

func TestDeleteCategory_RemovesRowThenImage(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")

	got, err := f.svc.DeleteCategory(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("returned %q, want %q", got.ID, c.ID)
	}
	if f.store.Exists(c.ImageKey) {
		t.Errorf("image should be deleted")
	}
	if _, err := f.svc.GetCategory(context.Background(), c.ID); !errors.Is(err, assetdom.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestDeleteCategory_BlobFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	f.store.SetHooks(nil, nil, memblob.FailOn(func(string) bool { return true }, errBoom))

	got, err := f.svc.DeleteCategory(context.Background(), c.ID)
	pbf, ok := assetdom.AsPartial(err)
	if !ok {
		t.Fatalf("expected partial batch failure, got %v", err)
	}
	if pbf.RolledBack || len(pbf.FailedKeys) != 1 || pbf.FailedKeys[0] != c.ImageKey {
		t.Errorf("unexpected failure %+v", pbf)
	}
	if got.ID != c.ID {
		t.Errorf("deleted category should still be returned")
	}
	if _, err := f.cats.GetByID(context.Background(), c.ID); !errors.Is(err, catdom.ErrNotFound) {
		t.Errorf("row should be gone")
	}
}

func TestListCategories_ExcludesByName(t *testing.T) {
	f := newFixture(t)
	f.category(t, "Roses")
	f.category(t, "Lilies")
	f.category(t, "Orchids")

	got, err := f.svc.ListCategories(context.Background(), "Lilies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Orchids" || got[1].Name != "Roses" {
		t.Errorf("unexpected list %+v", got)
	}
}

// ==============================
// Product
// ==============================

func TestCreateProduct_UploadsInOrder(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")

	pv := f.product(t, c.ID, "a.jpg", "b.jpg", "c.jpg")

	if len(pv.ImageKeys) != 3 || len(pv.Images) != 3 {
		t.Fatalf("unexpected images %+v", pv)
	}
	for i, suffix := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		if !strings.HasSuffix(pv.ImageKeys[i], suffix) {
			t.Errorf("key %d = %q, want suffix %q", i, pv.ImageKeys[i], suffix)
		}
		if pv.Images[i].Key != pv.ImageKeys[i] {
			t.Errorf("url %d signs %q, want %q", i, pv.Images[i].Key, pv.ImageKeys[i])
		}
	}
	if !pv.IsAvailable || pv.Version != 1 {
		t.Errorf("unexpected defaults %+v", pv.Product)
	}
	if strings.Join(pv.Tags, ",") != "red,gift" {
		t.Errorf("tags not normalized: %v", pv.Tags)
	}
}

func TestCreateProduct_UnknownCategoryUploadsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), catalog.CreateProductInput{
		Name:       "Rose",
		Price:      decimal.NewFromInt(10),
		CategoryID: "nope",
	}, []assetdom.File{img("a.jpg")})
	if !errors.Is(err, assetdom.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.store.Calls("put") != 0 {
		t.Errorf("no upload expected")
	}
}

func TestCreateProduct_ImageCountBounds(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	in := catalog.CreateProductInput{Name: "Rose", Price: decimal.NewFromInt(10), CategoryID: c.ID}

	if _, err := f.svc.CreateProduct(context.Background(), in, nil); !errors.Is(err, productdom.ErrNoImages) {
		t.Errorf("no images: got %v", err)
	}

	many := make([]assetdom.File, productdom.MaxImages+1)
	for i := range many {
		many[i] = img(fmt.Sprintf("%d.jpg", i))
	}
	if _, err := f.svc.CreateProduct(context.Background(), in, many); !errors.Is(err, assetdom.ErrValidation) {
		t.Errorf("too many images: got %v", err)
	}
}

func TestCreateProduct_PartialUploadLeavesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	f.store.SetHooks(memblob.FailOn(func(k string) bool { return strings.Contains(k, "bad") }, errBoom), nil, nil)

	_, err := f.svc.CreateProduct(context.Background(), catalog.CreateProductInput{
		Name: "Rose", Price: decimal.NewFromInt(10), CategoryID: c.ID,
	}, []assetdom.File{img("a.jpg"), img("bad.jpg"), img("c.jpg")})
	if !errors.Is(err, assetdom.ErrUploadFailed) {
		t.Fatalf("expected upload failure, got %v", err)
	}
	if got := f.store.Keys(); len(got) != 1 || got[0] != c.ImageKey {
		t.Errorf("only the category image should remain, have %v", got)
	}
	if n := f.prods.countIn(c.ID); n != 0 {
		t.Errorf("no product row expected, have %d", n)
	}
}

func TestCreateProduct_RowFailureDiscardsAllUploads(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	f.prods.failCreate = errBoom

	_, err := f.svc.CreateProduct(context.Background(), catalog.CreateProductInput{
		Name: "Rose", Price: decimal.NewFromInt(10), CategoryID: c.ID,
	}, []assetdom.File{img("a.jpg"), img("b.jpg")})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the row error, got %v", err)
	}
	if got := f.store.Keys(); len(got) != 1 {
		t.Errorf("uploads were not discarded: %v", got)
	}
}

func TestUpdateProduct_AppendKeepsOldImages(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg")

	pv, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images: []assetdom.UploadInput{assetdom.NewFile("b.jpg", []byte("b"), "")},
		Mode:   assetuc.ModeAppend,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pv.ImageKeys) != 2 || pv.ImageKeys[0] != p.ImageKeys[0] {
		t.Errorf("unexpected keys %v", pv.ImageKeys)
	}
	if pv.Version != p.Version+1 {
		t.Errorf("version = %d, want %d", pv.Version, p.Version+1)
	}
}

func TestUpdateProduct_ReplaceDeletesDroppedImagesAfterWrite(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	keep, drop := p.ImageKeys[1], p.ImageKeys[0]

	pv, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images: []assetdom.UploadInput{
			assetdom.NewFile("n.jpg", []byte("n"), ""),
			assetdom.ExistingKey(keep),
		},
		Mode: assetuc.ModeReplace,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pv.ImageKeys) != 2 || !strings.HasSuffix(pv.ImageKeys[0], "n.jpg") || pv.ImageKeys[1] != keep {
		t.Errorf("unexpected keys %v", pv.ImageKeys)
	}
	if f.store.Exists(drop) {
		t.Errorf("dropped image %q should be deleted", drop)
	}
	if !f.store.Exists(keep) {
		t.Errorf("kept image %q deleted", keep)
	}
}

func TestUpdateProduct_ConcurrentWriteRollsBackUploads(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	f.prods.beforeUpdate = func() { f.prods.bump(p.ID) }
	before := f.store.Keys()

	_, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images: []assetdom.UploadInput{assetdom.NewFile("n.jpg", []byte("n"), "")},
		Mode:   assetuc.ModeReplace,
	})
	if !errors.Is(err, assetdom.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	after := f.store.Keys()
	if strings.Join(after, ",") != strings.Join(before, ",") {
		t.Errorf("store changed: before %v after %v", before, after)
	}
}

func TestUpdateProduct_StaleIfMatchUploadsNothing(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg")
	puts := f.store.Calls("put")
	stale := p.Version + 5

	_, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images:         []assetdom.UploadInput{assetdom.NewFile("n.jpg", []byte("n"), "")},
		Mode:           assetuc.ModeAppend,
		IfMatchVersion: &stale,
	})
	if !errors.Is(err, productdom.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.store.Calls("put") != puts {
		t.Errorf("no upload expected")
	}
}

func TestUpdateProduct_DropFailureIsPartialButCommitted(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	drop := p.ImageKeys[0]
	f.store.SetHooks(nil, nil, memblob.FailOn(func(k string) bool { return k == drop }, errBoom))

	pv, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images: []assetdom.UploadInput{assetdom.ExistingKey(p.ImageKeys[1])},
		Mode:   assetuc.ModeReplace,
	})
	pbf, ok := assetdom.AsPartial(err)
	if !ok || pbf.RolledBack {
		t.Fatalf("expected a not-rolled-back partial failure, got %v", err)
	}
	if len(pv.ImageKeys) != 1 || pv.ImageKeys[0] != p.ImageKeys[1] {
		t.Errorf("row should be committed, keys %v", pv.ImageKeys)
	}
}

func TestUpdateProduct_FieldPatchOnly(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg")
	name := "  Tulip bouquet "

	pv, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Patch: productdom.ProductPatch{Name: &name},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pv.Name != "Tulip bouquet" {
		t.Errorf("name = %q", pv.Name)
	}
	if strings.Join(pv.ImageKeys, ",") != strings.Join(p.ImageKeys, ",") {
		t.Errorf("images changed: %v", pv.ImageKeys)
	}
}

func TestRemoveProductImage(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")

	pv, err := f.svc.RemoveProductImage(context.Background(), p.ID, p.ImageKeys[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pv.ImageKeys) != 1 || f.store.Exists(p.ImageKeys[0]) {
		t.Errorf("image not removed: keys %v", pv.ImageKeys)
	}

	if _, err := f.svc.RemoveProductImage(context.Background(), p.ID, pv.ImageKeys[0]); !errors.Is(err, assetdom.ErrValidation) {
		t.Errorf("removing the last image: got %v", err)
	}
	if _, err := f.svc.RemoveProductImage(context.Background(), p.ID, "other.jpg"); !errors.Is(err, assetdom.ErrNotFound) {
		t.Errorf("removing a foreign key: got %v", err)
	}
}

func TestDeleteProduct_SoftKeepsImages(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")

	got, err := f.svc.DeleteProduct(context.Background(), p.ID, catalog.DeleteSoft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsAvailable {
		t.Errorf("product should be unavailable")
	}
	for _, k := range p.ImageKeys {
		if !f.store.Exists(k) {
			t.Errorf("image %q deleted by soft delete", k)
		}
	}
}

func TestDeleteProduct_HardRemovesImages(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")

	if _, err := f.svc.DeleteProduct(context.Background(), p.ID, catalog.DeleteHard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range p.ImageKeys {
		if f.store.Exists(k) {
			t.Errorf("image %q should be deleted", k)
		}
	}
	if _, err := f.svc.GetProduct(context.Background(), p.ID); !errors.Is(err, assetdom.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReads_SigningFailureIsReported(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	broken := p.ImageKeys[1]
	f.store.SetHooks(nil, memblob.FailOn(func(k string) bool { return k == broken }, errBoom), nil)

	pv, err := f.svc.GetProduct(context.Background(), p.ID)
	pbf, ok := assetdom.AsPartial(err)
	if !ok || pbf.Op != assetdom.OpResolve {
		t.Fatalf("expected a resolve partial failure, got %v", err)
	}
	if len(pbf.FailedKeys) != 1 || pbf.FailedKeys[0] != broken {
		t.Errorf("unexpected failed keys %v", pbf.FailedKeys)
	}
	if pv.ID != p.ID || pv.Images[0].URL == "" || pv.Images[1].URL != "" {
		t.Errorf("view should still be built, got %+v", pv)
	}
}

func TestListReads_SigningFailureKeepsPage(t *testing.T) {
	f := newFixture(t)
	roses := f.category(t, "Roses")
	p1 := f.product(t, roses.ID, "a.jpg")
	p2 := f.product(t, roses.ID, "b.jpg")
	broken := p2.ImageKeys[0]
	f.store.SetHooks(nil, memblob.FailOn(func(k string) bool { return k == broken }, errBoom), nil)

	res, err := f.svc.ListProducts(context.Background(), catalog.ProductQuery{CategoryID: roses.ID})
	if parts, ok := assetdom.OnlyPartial(err); !ok || len(parts) != 1 || parts[0].FailedKeys[0] != broken {
		t.Fatalf("expected the unsigned key to be reported, got %v", err)
	}
	if len(res.Items) != 2 {
		t.Errorf("page should be returned, got %+v", res)
	}

	cwp, err := f.svc.CategoryWithProducts(context.Background(), roses.ID)
	if _, ok := assetdom.OnlyPartial(err); !ok {
		t.Fatalf("expected a partial failure, got %v", err)
	}
	if cwp.Category.ID != roses.ID || len(cwp.Products) != 2 {
		t.Errorf("unexpected result %+v", cwp)
	}
	for _, pv := range cwp.Products {
		if pv.ID == p1.ID && pv.Images[0].URL == "" {
			t.Errorf("healthy product lost its url")
		}
	}
}

func TestCartImage_SigningFailureIsStoreError(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg")
	f.store.SetHooks(nil, memblob.FailOn(func(string) bool { return true }, assetdom.ErrStorageUnavailable), nil)

	u, err := f.svc.CartImage(context.Background(), p.ID)
	if !errors.Is(err, assetdom.ErrStorageUnavailable) {
		t.Fatalf("expected storage unavailable, got %v", err)
	}
	if _, ok := assetdom.AsPartial(err); ok {
		t.Errorf("single-key resolve should not be reported as a batch")
	}
	if u.Key != p.ImageKeys[0] || u.URL != "" {
		t.Errorf("unexpected cart image %+v", u)
	}
}

func TestUpdateProduct_CleanupRunsBeforeView(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	keep, drop := p.ImageKeys[1], p.ImageKeys[0]

	var dropAliveAtSign atomic.Bool
	f.store.SetHooks(nil, func(string) error {
		if f.store.Exists(drop) {
			dropAliveAtSign.Store(true)
		}
		return errBoom
	}, nil)

	pv, err := f.svc.UpdateProduct(context.Background(), p.ID, catalog.UpdateProductInput{
		Images: []assetdom.UploadInput{assetdom.ExistingKey(keep)},
		Mode:   assetuc.ModeReplace,
	})
	if dropAliveAtSign.Load() {
		t.Error("view was built before the dropped image was deleted")
	}
	if f.store.Exists(drop) {
		t.Errorf("dropped image %q should be deleted", drop)
	}
	if err == nil {
		t.Fatal("expected the signing failure to be reported")
	}
	if len(pv.ImageKeys) != 1 || pv.ImageKeys[0] != keep {
		t.Errorf("row should be committed, keys %v", pv.ImageKeys)
	}
}

func TestRemoveProductImage_CleanupRunsBeforeView(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")
	gone := p.ImageKeys[0]

	var goneAliveAtSign atomic.Bool
	f.store.SetHooks(nil, func(string) error {
		if f.store.Exists(gone) {
			goneAliveAtSign.Store(true)
		}
		return nil
	}, nil)

	pv, err := f.svc.RemoveProductImage(context.Background(), p.ID, gone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if goneAliveAtSign.Load() || f.store.Exists(gone) {
		t.Errorf("removed image %q should be deleted before the view is built", gone)
	}
	if len(pv.Images) != 1 || pv.Images[0].Key != p.ImageKeys[1] {
		t.Errorf("unexpected images %+v", pv.Images)
	}
}

func TestUpdateCategory_CleanupRunsBeforeView(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	old := c.ImageKey

	var oldAliveAtSign atomic.Bool
	f.store.SetHooks(nil, func(string) error {
		if f.store.Exists(old) {
			oldAliveAtSign.Store(true)
		}
		return nil
	}, nil)

	next := img("new.jpg")
	cv, err := f.svc.UpdateCategory(context.Background(), c.ID, nil, &next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if oldAliveAtSign.Load() || f.store.Exists(old) {
		t.Errorf("old image %q should be deleted before the view is built", old)
	}
	if cv.Image.URL == "" || cv.ImageKey == old {
		t.Errorf("unexpected view %+v", cv)
	}
}

func TestListProductsAndCategoryWithProducts(t *testing.T) {
	f := newFixture(t)
	roses := f.category(t, "Roses")
	lilies := f.category(t, "Lilies")
	r1 := f.product(t, roses.ID, "a.jpg", "b.jpg")
	f.product(t, roses.ID, "c.jpg")
	f.product(t, lilies.ID, "d.jpg")

	res, err := f.svc.ListProducts(context.Background(), catalog.ProductQuery{CategoryID: roses.ID, ExcludeID: r1.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 1 || len(res.Items[0].Images) != 1 {
		t.Errorf("unexpected page %+v", res)
	}

	cwp, err := f.svc.CategoryWithProducts(context.Background(), roses.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cwp.Category.ID != roses.ID || len(cwp.Products) != 2 {
		t.Errorf("unexpected result %+v", cwp)
	}
}

func TestCartImage_IsCover(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Roses")
	p := f.product(t, c.ID, "a.jpg", "b.jpg")

	u, err := f.svc.CartImage(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Key != p.ImageKeys[0] || u.URL == "" {
		t.Errorf("unexpected cart image %+v", u)
	}
}
