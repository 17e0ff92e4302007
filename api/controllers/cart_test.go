package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightbasket/brightbasket-backend/api/middleware"
	"github.com/brightbasket/brightbasket-backend/internal/cart"
	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/types"
)

type stubCartService struct {
	view     *cart.View
	products []models.Product
	err      error

	lastOwner     types.OwnerRef
	lastProductID uuid.UUID
	lastQuantity  int
	lastItemID    uuid.UUID
	cleared       uuid.UUID
}

func (s *stubCartService) Fetch(_ context.Context, owner types.OwnerRef) (*cart.View, error) {
	s.lastOwner = owner
	return s.view, s.err
}

func (s *stubCartService) AddItem(_ context.Context, owner types.OwnerRef, productID uuid.UUID, quantity int) (*cart.View, error) {
	s.lastOwner = owner
	s.lastProductID = productID
	s.lastQuantity = quantity
	return s.view, s.err
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, owner types.OwnerRef, itemID uuid.UUID, quantity int) (*cart.View, error) {
	s.lastOwner = owner
	s.lastItemID = itemID
	s.lastQuantity = quantity
	return s.view, s.err
}

func (s *stubCartService) RemoveItem(_ context.Context, owner types.OwnerRef, itemID uuid.UUID) (*cart.View, error) {
	s.lastOwner = owner
	s.lastItemID = itemID
	return s.view, s.err
}

func (s *stubCartService) Clear(_ context.Context, owner types.OwnerRef, cartID uuid.UUID) error {
	s.lastOwner = owner
	s.cleared = cartID
	return s.err
}

func (s *stubCartService) EligibleFreeProducts(_ context.Context, owner types.OwnerRef) ([]models.Product, error) {
	s.lastOwner = owner
	return s.products, s.err
}

func (s *stubCartService) AddFreeProduct(_ context.Context, owner types.OwnerRef, productID uuid.UUID) (*cart.View, error) {
	s.lastOwner = owner
	s.lastProductID = productID
	return s.view, s.err
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(middleware.WithSessionID(r.Context(), sessionID))
}

func TestCartFetch(t *testing.T) {
	svc := &stubCartService{view: &cart.View{ID: uuid.New(), Items: []cart.LineView{}, SubtotalCents: 0}}
	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1")
	rec := httptest.NewRecorder()

	CartFetch(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastOwner.SessionID != "sess-1" {
		t.Fatalf("expected session owner, got %+v", svc.lastOwner)
	}
}

func TestCartAddItem(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: &cart.View{ID: uuid.New()}}

	body := `{"product_id":"` + productID.String() + `","quantity":3}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()

	CartAddItem(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastProductID != productID || svc.lastQuantity != 3 {
		t.Fatalf("unexpected call args: %s %d", svc.lastProductID, svc.lastQuantity)
	}
}

func TestCartAddItem_RejectsFreeFlag(t *testing.T) {
	svc := &stubCartService{view: &cart.View{}}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":1,"is_free":true}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()

	CartAddItem(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for is_free=true, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation code, got %s", envelope.Error.Code)
	}
}

func TestCartAddItem_ValidationFailures(t *testing.T) {
	svc := &stubCartService{view: &cart.View{}}

	cases := []struct {
		name string
		body string
	}{
		{name: "missing product", body: `{"quantity":1}`},
		{name: "zero quantity", body: `{"product_id":"` + uuid.NewString() + `","quantity":0}`},
		{name: "unknown field", body: `{"product_id":"` + uuid.NewString() + `","quantity":1,"color":"red"}`},
		{name: "malformed json", body: `{"product_id":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(tc.body)), "sess-1")
			rec := httptest.NewRecorder()
			CartAddItem(svc, nil)(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func newChiRequest(method, path, body string, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCartUpdateItem(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{view: &cart.View{}}

	req := newChiRequest(http.MethodPut, "/api/v1/cart/items/"+itemID.String(), `{"quantity":0}`,
		map[string]string{"itemId": itemID.String()})
	req = withSession(req, "sess-1")
	rec := httptest.NewRecorder()

	CartUpdateItem(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastItemID != itemID || svc.lastQuantity != 0 {
		t.Fatalf("unexpected call args: %s %d", svc.lastItemID, svc.lastQuantity)
	}
}

func TestCartUpdateItem_BadPathParam(t *testing.T) {
	svc := &stubCartService{view: &cart.View{}}
	req := newChiRequest(http.MethodPut, "/api/v1/cart/items/not-a-uuid", `{"quantity":1}`,
		map[string]string{"itemId": "not-a-uuid"})
	req = withSession(req, "sess-1")
	rec := httptest.NewRecorder()

	CartUpdateItem(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad uuid, got %d", rec.Code)
	}
}

func TestCartRemoveItem(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{view: &cart.View{}}

	req := newChiRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), "",
		map[string]string{"itemId": itemID.String()})
	req = withSession(req, "sess-1")
	rec := httptest.NewRecorder()

	CartRemoveItem(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastItemID != itemID {
		t.Fatalf("expected item id %s, got %s", itemID, svc.lastItemID)
	}
}

func TestCartClear(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCartService{}

	req := newChiRequest(http.MethodDelete, "/api/v1/cart/"+cartID.String(), "",
		map[string]string{"cartId": cartID.String()})
	req = withSession(req, "sess-1")
	rec := httptest.NewRecorder()

	CartClear(svc, nil)(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if svc.cleared != cartID {
		t.Fatalf("expected clear of %s, got %s", cartID, svc.cleared)
	}
}

func TestCartClear_Forbidden(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to a different owner")}

	req := newChiRequest(http.MethodDelete, "/api/v1/cart/"+cartID.String(), "",
		map[string]string{"cartId": cartID.String()})
	req = withSession(req, "sess-1")
	rec := httptest.NewRecorder()

	CartClear(svc, nil)(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCartEligibleFreeProducts(t *testing.T) {
	giftID := uuid.New()
	svc := &stubCartService{products: []models.Product{{ID: giftID, Slug: "sticker", Title: "Sticker Pack"}}}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart/eligible-free-products", nil), "sess-1")
	rec := httptest.NewRecorder()

	CartEligibleFreeProducts(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data []models.Product `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != giftID {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCartAddFreeProduct(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: &cart.View{}}

	body := `{"product_id":"` + productID.String() + `"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/add-free-product", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()

	CartAddFreeProduct(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastProductID != productID {
		t.Fatalf("expected product %s, got %s", productID, svc.lastProductID)
	}
}

func TestCartAddFreeProduct_BelowThreshold(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeValidation, "cart subtotal is below the offer threshold")}

	body := `{"product_id":"` + uuid.NewString() + `"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/add-free-product", strings.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()

	CartAddFreeProduct(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
