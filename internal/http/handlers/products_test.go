package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/rentdesk/internal/actorctx"
	"github.com/geocoder89/rentdesk/internal/domain/product"
	"github.com/geocoder89/rentdesk/internal/http/handlers"
	"github.com/geocoder89/rentdesk/internal/http/middlewares"
	"github.com/geocoder89/rentdesk/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for the auth middleware.
func asUser(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, id)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), id))
		c.Next()
	}
}

func productRouter(repo handlers.ProductsStore, mw ...gin.HandlerFunc) *gin.Engine {
	h := handlers.NewProductsHandler(repo)

	r := gin.New()
	r.Use(mw...)
	r.GET("/product/", h.List)
	r.POST("/product/", h.Create)
	r.GET("/product/:id/", h.Get)
	r.PUT("/product/:id/", h.Update)
	r.PATCH("/product/:id/", h.Patch)
	r.DELETE("/product/:id/", h.Delete)

	return r
}

func doJSON(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v body=%s", err, w.Body.String())
	}
	return out
}

func TestCreateProduct(t *testing.T) {
	repo := memory.NewProductsRepo()
	r := productRouter(repo)

	w := doJSON(r, http.MethodPost, "/product/", validProductBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201, body=%s", w.Code, w.Body.String())
	}

	got := decode[product.Product](t, w)
	if got.ID == 0 || got.Durability != 0 || got.Mileage != nil {
		t.Fatalf("unexpected product: %+v", got)
	}
	if got.CreatedBy != nil {
		t.Fatalf("anonymous create should not stamp created_by")
	}

	if _, err := repo.GetByID(context.Background(), got.ID); err != nil {
		t.Fatalf("product not stored: %v", err)
	}
}

func TestCreateProductStampsCaller(t *testing.T) {
	r := productRouter(memory.NewProductsRepo(), asUser(42))

	w := doJSON(r, http.MethodPost, "/product/", validProductBody)
	got := decode[product.Product](t, w)

	if got.CreatedBy == nil || *got.CreatedBy != 42 || got.UpdatedBy == nil || *got.UpdatedBy != 42 {
		t.Fatalf("audit fields not stamped: %+v", got)
	}
}

func TestCreateProductValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing_fields", body: `{"code":"x"}`},
		{name: "negative_price", body: strings.Replace(validProductBody, `"price":15`, `"price":-1`, 1)},
		{name: "long_code", body: strings.Replace(validProductBody, `"BK-1"`, `"`+strings.Repeat("c", 31)+`"`, 1)},
		{name: "read_only_id", body: strings.Replace(validProductBody, `{`, `{"id":3,`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewProductsRepo()
			w := doJSON(productRouter(repo), http.MethodPost, "/product/", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
			}

			_, total, _ := repo.List(context.Background(), product.ListFilter{})
			if total != 0 {
				t.Fatalf("invalid create must not persist")
			}
		})
	}
}

func TestOversizedProductFieldsAreNotStored(t *testing.T) {
	repo := memory.NewProductsRepo()
	r := productRouter(repo)

	w := doJSON(r, http.MethodPost, "/product/", `{"code":"BK-1","name":"Bike","product_type":"bicycle","availability":true,"needing_repair":false,"max_durability":3000000000,"mileage":3000000000,"price":3000000000,"minimum_rent_period":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	if _, total, _ := repo.List(context.Background(), product.ListFilter{}); total != 0 {
		t.Fatalf("rejected product was stored, total=%d", total)
	}

	created := decode[product.Product](t, doJSON(r, http.MethodPost, "/product/", validProductBody))
	w = doJSON(r, http.MethodPatch, fmt.Sprintf("/product/%d/", created.ID), `{"price":3000000000}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("patch: got status %d, want 400", w.Code)
	}
}

func seedProduct(t *testing.T, repo *memory.ProductsRepo, code, typ string, available bool) product.Product {
	t.Helper()

	p, err := repo.Create(context.Background(), product.Product{
		Code: code, Name: "Item " + code, ProductType: typ, Availability: available,
		MaxDurability: 10, Price: 5, MinimumRentPeriod: 1,
	}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p
}

func TestListProducts(t *testing.T) {
	repo := memory.NewProductsRepo()
	seedProduct(t, repo, "BK-1", "bicycle", true)
	seedProduct(t, repo, "BK-2", "bicycle", false)
	seedProduct(t, repo, "SK-1", "ski", true)
	r := productRouter(repo)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
		wantItems int
	}{
		{name: "all", query: "", wantCode: 200, wantCount: 3, wantItems: 3},
		{name: "by_type", query: "?product_type=bicycle", wantCode: 200, wantCount: 2, wantItems: 2},
		{name: "available_bikes", query: "?product_type=bicycle&availability=true", wantCode: 200, wantCount: 1, wantItems: 1},
		{name: "search_code", query: "?search=sk", wantCode: 200, wantCount: 1, wantItems: 1},
		{name: "paged", query: "?limit=2&offset=2", wantCode: 200, wantCount: 3, wantItems: 1},
		{name: "bad_bool", query: "?availability=maybe", wantCode: 400},
		{name: "bad_limit", query: "?limit=0", wantCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodGet, "/product/"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			page := decode[handlers.Page[product.Product]](t, w)
			if page.Count != tt.wantCount || len(page.Items) != tt.wantItems {
				t.Fatalf("count=%d items=%d, want %d/%d", page.Count, len(page.Items), tt.wantCount, tt.wantItems)
			}
		})
	}
}

func TestListProductsClampsLimit(t *testing.T) {
	w := doJSON(productRouter(memory.NewProductsRepo()), http.MethodGet, "/product/?limit=1000", "")

	page := decode[handlers.Page[product.Product]](t, w)
	if page.Limit != 200 {
		t.Fatalf("limit: got %d want 200", page.Limit)
	}
	if page.Items == nil {
		t.Fatalf("items should encode as an empty array")
	}
}

func TestGetProduct(t *testing.T) {
	repo := memory.NewProductsRepo()
	p := seedProduct(t, repo, "BK-1", "bicycle", true)
	r := productRouter(repo)

	w := doJSON(r, http.MethodGet, "/product/1/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if got := decode[product.Product](t, w); got.Code != p.Code {
		t.Fatalf("code: %q", got.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	if w := doJSON(r, http.MethodGet, "/product/1/", "", "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("matching If-None-Match: got %d want 304", w.Code)
	}

	if w := doJSON(r, http.MethodGet, "/product/99/", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing product: got %d want 404", w.Code)
	}

	if w := doJSON(r, http.MethodGet, "/product/abc/", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: got %d want 400", w.Code)
	}
}

func TestUpdateProduct(t *testing.T) {
	repo := memory.NewProductsRepo()
	mileage := 12
	created, _ := repo.Create(context.Background(), product.Product{
		Code: "BK-1", Name: "Bike", ProductType: "bicycle", MaxDurability: 10, Mileage: &mileage,
	}, nil)
	r := productRouter(repo, asUser(7))

	w := doJSON(r, http.MethodPut, "/product/1/", validProductBody)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	got := decode[product.Product](t, w)
	if got.Price != 15 || got.Mileage != nil {
		t.Fatalf("full update should replace writable fields: %+v", got)
	}
	if got.UpdatedBy == nil || *got.UpdatedBy != 7 || got.CreatedBy != nil {
		t.Fatalf("audit fields: created_by=%v updated_by=%v", got.CreatedBy, got.UpdatedBy)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed")
	}

	if w := doJSON(r, http.MethodPut, "/product/1/", `{"code":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete PUT: got %d want 400", w.Code)
	}
}

func TestPatchProduct(t *testing.T) {
	repo := memory.NewProductsRepo()
	seedProduct(t, repo, "BK-1", "bicycle", true)
	r := productRouter(repo)

	w := doJSON(r, http.MethodPatch, "/product/1/", `{"needing_repair":true,"durability":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	got := decode[product.Product](t, w)
	if !got.NeedingRepair || got.Durability != 3 || got.Code != "BK-1" || got.Price != 5 {
		t.Fatalf("patch should only touch sent fields: %+v", got)
	}

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "read_only", path: "/product/1/", body: `{"updated_at":"2024-01-01T00:00:00Z"}`, want: 400},
		{name: "empty_name", path: "/product/1/", body: `{"name":""}`, want: 400},
		{name: "missing", path: "/product/9/", body: `{"price":1}`, want: 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(r, http.MethodPatch, tt.path, tt.body); w.Code != tt.want {
				t.Fatalf("got %d want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDeleteProduct(t *testing.T) {
	repo := memory.NewProductsRepo()
	seedProduct(t, repo, "BK-1", "bicycle", true)
	r := productRouter(repo)

	if w := doJSON(r, http.MethodDelete, "/product/2/", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing product: got %d want 404", w.Code)
	}
	if _, total, _ := repo.List(context.Background(), product.ListFilter{}); total != 1 {
		t.Fatalf("store changed after a 404 delete")
	}

	if w := doJSON(r, http.MethodDelete, "/product/1/", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d want 204", w.Code)
	}
	if _, err := repo.GetByID(context.Background(), 1); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("product still present: %v", err)
	}
}

type failingProducts struct{ handlers.ProductsStore }

func (failingProducts) List(context.Context, product.ListFilter) ([]product.Product, int, error) {
	return nil, 0, errors.New("connection reset")
}

func TestListProductsStoreFailure(t *testing.T) {
	w := doJSON(productRouter(failingProducts{}), http.MethodGet, "/product/", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d want 500", w.Code)
	}
}
