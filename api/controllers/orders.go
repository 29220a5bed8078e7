package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/api/responses"
	"github.com/feirahub/marketplace-backend/api/validators"
	internalorders "github.com/feirahub/marketplace-backend/internal/orders"
	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/logger"
	"github.com/feirahub/marketplace-backend/pkg/money"
	"github.com/feirahub/marketplace-backend/pkg/pagination"
)

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type createOrderRequest struct {
	SupplierID string             `json:"supplier_id" validate:"required,uuid4"`
	ClientID   *string            `json:"client_id,omitempty" validate:"omitempty,uuid4"`
	Items      []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	ProductID   *uuid.UUID        `json:"product_id,omitempty"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   money.Money       `json:"unit_price"`
	LineTotal   money.Money       `json:"line_total"`
	PriceSource enums.PriceSource `json:"price_source"`
}

type orderStatusEntryResponse struct {
	FromStatus *enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus   enums.OrderStatus  `json:"to_status"`
	CreatedAt  time.Time          `json:"created_at"`
}

type orderResponse struct {
	ID            uuid.UUID                  `json:"id"`
	Number        string                     `json:"number"`
	ClientID      *uuid.UUID                 `json:"client_id,omitempty"`
	SupplierID    uuid.UUID                  `json:"supplier_id"`
	Status        enums.OrderStatus          `json:"status"`
	Subtotal      money.Money                `json:"subtotal"`
	Discount      money.Money                `json:"discount"`
	Freight       money.Money                `json:"freight"`
	Total         money.Money                `json:"total"`
	Items         []orderItemResponse        `json:"items"`
	StatusHistory []orderStatusEntryResponse `json:"status_history,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// CreateOrder commits a cart into an order with frozen prices.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplierID, err := uuid.Parse(payload.SupplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid supplier_id"))
			return
		}

		buyerID, err := resolveBuyerID(actor.Role, actor.ID, payload.ClientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalorders.LineInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
				return
			}
			lines = append(lines, internalorders.LineInput{ProductID: productID, Quantity: item.Quantity})
		}

		order, err := svc.CommitOrder(r.Context(), internalorders.CommitOrderInput{
			SupplierID: supplierID,
			BuyerID:    buyerID,
			Lines:      lines,
			Actor:      &actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, buildOrderResponse(order))
	}
}

// CancelOrder cancels a pendente or confirmado order and restores its stock.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buildOrderResponse(order))
	}
}

// UpdateOrderStatus advances the supplier-driven order lifecycle.
func UpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		next, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, next, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buildOrderResponse(order))
	}
}

// GetOrder returns the full order detail for its buyer, supplier, or an admin.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buildOrderResponse(order))
	}
}

// ListOrders pages through the actor's own orders, newest first.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListOrders(r.Context(), actor, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func buildOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			PriceSource: item.PriceSource,
		})
	}
	history := make([]orderStatusEntryResponse, 0, len(order.StatusHistory))
	for _, entry := range order.StatusHistory {
		history = append(history, orderStatusEntryResponse{
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return orderResponse{
		ID:            order.ID,
		Number:        order.Number,
		ClientID:      order.ClientID,
		SupplierID:    order.SupplierID,
		Status:        order.Status,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Freight:       order.Freight,
		Total:         order.Total,
		Items:         items,
		StatusHistory: history,
		CreatedAt:     order.CreatedAt,
	}
}
