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

	"github.com/feirahub/marketplace-backend/api/middleware"
	internalorders "github.com/feirahub/marketplace-backend/internal/orders"
	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/money"
	"github.com/feirahub/marketplace-backend/pkg/pagination"
)

type stubOrdersService struct {
	commitFn func(ctx context.Context, input internalorders.CommitOrderInput) (*models.Order, error)
	cancelFn func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	updateFn func(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor internalorders.Actor) (*models.Order, error)
	getFn    func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	listFn   func(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.OrderList, error)
}

func (s *stubOrdersService) CommitOrder(ctx context.Context, input internalorders.CommitOrderInput) (*models.Order, error) {
	return s.commitFn(ctx, input)
}

func (s *stubOrdersService) CancelOrder(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.cancelFn(ctx, orderID, actor)
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor internalorders.Actor) (*models.Order, error) {
	return s.updateFn(ctx, orderID, next, actor)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.getFn(ctx, orderID, actor)
}

func (s *stubOrdersService) ListOrders(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.OrderList, error) {
	return s.listFn(ctx, actor, params)
}

func withActor(req *http.Request, actorID uuid.UUID, role enums.ActorRole) *http.Request {
	ctx := middleware.WithActor(req.Context(), actorID.String(), string(role))
	return req.WithContext(ctx)
}

func ordersTestRouter(svc internalorders.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/orders", CreateOrder(svc, nil))
	r.Get("/api/v1/orders", ListOrders(svc, nil))
	r.Get("/api/v1/orders/{orderId}", GetOrder(svc, nil))
	r.Post("/api/v1/orders/{orderId}/cancel", CancelOrder(svc, nil))
	r.Patch("/api/v1/orders/{orderId}/status", UpdateOrderStatus(svc, nil))
	return r
}

func sampleOrder(supplierID uuid.UUID, clientID *uuid.UUID) *models.Order {
	return &models.Order{
		ID:         uuid.New(),
		Number:     "PED-20260828-0001",
		ClientID:   clientID,
		SupplierID: supplierID,
		Status:     enums.OrderStatusPending,
		Subtotal:   money.MustFromString("150.00"),
		Discount:   money.Zero(),
		Freight:    money.Zero(),
		Total:      money.MustFromString("150.00"),
		Items: []models.OrderItem{{
			ID:          uuid.New(),
			ProductName: "Arroz Tipo 1 5kg",
			Quantity:    3,
			UnitPrice:   money.MustFromString("50.00"),
			LineTotal:   money.MustFromString("150.00"),
			PriceSource: enums.PriceSourceBase,
		}},
	}
}

func TestCreateOrderPinsBuyerIdentity(t *testing.T) {
	buyer := uuid.New()
	supplier := uuid.New()
	product := uuid.New()

	var captured internalorders.CommitOrderInput
	svc := &stubOrdersService{
		commitFn: func(ctx context.Context, input internalorders.CommitOrderInput) (*models.Order, error) {
			captured = input
			return sampleOrder(input.SupplierID, input.BuyerID), nil
		},
	}

	body := `{"supplier_id":"` + supplier.String() + `","items":[{"product_id":"` + product.String() + `","quantity":3}]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), buyer, enums.ActorRoleBuyer)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.BuyerID == nil || *captured.BuyerID != buyer {
		t.Fatalf("expected buyer pinned to actor, got %v", captured.BuyerID)
	}
	if captured.Actor == nil || captured.Actor.Role != enums.ActorRoleBuyer {
		t.Fatalf("expected buyer actor forwarded, got %+v", captured.Actor)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Number != "PED-20260828-0001" {
		t.Fatalf("unexpected order number %s", envelope.Data.Number)
	}
	if envelope.Data.Total.String() != "150.00" {
		t.Fatalf("expected total 150.00 got %s", envelope.Data.Total)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	called := false
	svc := &stubOrdersService{
		commitFn: func(ctx context.Context, input internalorders.CommitOrderInput) (*models.Order, error) {
			called = true
			return nil, nil
		},
	}

	body := `{"supplier_id":"` + uuid.NewString() + `","items":[]}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), uuid.New(), enums.ActorRoleBuyer)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("service should not run for invalid payload")
	}
}

func TestCreateOrderRequiresActor(t *testing.T) {
	svc := &stubOrdersService{}
	body := `{"supplier_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCancelOrderSurfacesStateConflict(t *testing.T) {
	svc := &stubOrdersService{
		cancelFn: func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be canceled in its current status").
				WithDetails(map[string]any{"status": enums.OrderStatusShipped})
		},
	}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil), uuid.New(), enums.ActorRoleBuyer)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT got %s", payload.Error.Code)
	}
	if payload.Error.Details["status"] != string(enums.OrderStatusShipped) {
		t.Fatalf("expected status detail, got %v", payload.Error.Details)
	}
}

func TestUpdateOrderStatusParsesTarget(t *testing.T) {
	supplier := uuid.New()
	var capturedNext enums.OrderStatus
	svc := &stubOrdersService{
		updateFn: func(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor internalorders.Actor) (*models.Order, error) {
			capturedNext = next
			order := sampleOrder(supplier, nil)
			order.Status = next
			return order, nil
		},
	}

	orderID := uuid.NewString()
	req := withActor(httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+orderID+"/status", strings.NewReader(`{"status":"confirmado"}`)), supplier, enums.ActorRoleSupplier)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if capturedNext != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmado got %s", capturedNext)
	}

	bad := withActor(httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+orderID+"/status", strings.NewReader(`{"status":"despachado"}`)), supplier, enums.ActorRoleSupplier)
	resp = httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", resp.Code)
	}
}

func TestListOrdersForwardsPagination(t *testing.T) {
	buyer := uuid.New()
	var captured pagination.Params
	svc := &stubOrdersService{
		listFn: func(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.OrderList, error) {
			captured = params
			return &internalorders.OrderList{Orders: []internalorders.OrderSummary{}}, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", nil), buyer, enums.ActorRoleBuyer)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Limit != 5 || captured.Cursor != "abc" {
		t.Fatalf("unexpected pagination %+v", captured)
	}

	bad := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=overflow", nil), buyer, enums.ActorRoleBuyer)
	resp = httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit got %d", resp.Code)
	}
}

func TestGetOrderRejectsMalformedID(t *testing.T) {
	svc := &stubOrdersService{
		getFn: func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil), uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	ordersTestRouter(svc).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
