// Package orders owns the commit and cancel projections. Commit re-runs the
// cart's resolution path inside one transaction and freezes the outcome;
// committed prices are never re-derived.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feirahub/marketplace-backend/internal/catalog"
	"github.com/feirahub/marketplace-backend/internal/pricing"
	"github.com/feirahub/marketplace-backend/internal/stock"
	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/money"
	"github.com/feirahub/marketplace-backend/pkg/outbox"
	"github.com/feirahub/marketplace-backend/pkg/outbox/payloads"
	"github.com/feirahub/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogRepository interface {
	WithTx(tx *gorm.DB) *catalog.Repository
}

type stockRepository interface {
	WithTx(tx *gorm.DB) *stock.Repository
}

// Actor identifies who is acting on an order.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CommitOrderInput carries everything needed to commit an order.
type CommitOrderInput struct {
	SupplierID uuid.UUID
	BuyerID    *uuid.UUID
	Lines      []LineInput
	Actor      *Actor
}

// Service defines order lifecycle operations.
type Service interface {
	CommitOrder(ctx context.Context, input CommitOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor Actor) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	catalog   catalogRepository
	stockRepo stockRepository
	outbox    outboxPublisher
	now       func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, catalogRepo catalogRepository, stockRepo stockRepository, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		catalog:   catalogRepo,
		stockRepo: stockRepo,
		outbox:    outboxSvc,
		now:       time.Now,
	}, nil
}

// CommitOrder validates, prices and persists the order atomically. Stock is
// enforced by conditional decrements: any line that cannot be covered rolls
// the whole transaction back.
func (s *service) CommitOrder(ctx context.Context, input CommitOrderInput) (*models.Order, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	var committed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txCatalog := s.catalog.WithTx(tx)
		txStock := s.stockRepo.WithTx(tx)
		txRepo := s.repo.WithTx(tx)

		supplier, err := txCatalog.FindSupplier(ctx, input.SupplierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
		}
		if supplier == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		if !supplier.IsActive {
			return pkgerrors.New(pkgerrors.CodeResourceInactive, "supplier is inactive")
		}

		gate, err := stock.NewGate(txCatalog)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build availability gate")
		}
		gateLines := make([]stock.Line, 0, len(input.Lines))
		for _, line := range input.Lines {
			gateLines = append(gateLines, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		products, err := gate.CheckAvailability(ctx, input.SupplierID, gateLines)
		if err != nil {
			return err
		}

		resolver, err := pricing.NewService(txCatalog)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build price resolver")
		}

		now := s.now()
		number, err := txRepo.NextOrderNumber(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		subtotal := money.Zero()
		items := make([]models.OrderItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			product := products[line.ProductID]
			price, err := resolver.ResolveForProduct(ctx, product, input.BuyerID)
			if err != nil {
				return err
			}
			lineTotal := price.UnitPrice.MulQty(int64(line.Quantity))
			productID := product.ID
			items = append(items, models.OrderItem{
				ID:          uuid.New(),
				ProductID:   &productID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   price.UnitPrice,
				LineTotal:   lineTotal,
				PriceSource: price.Source,
			})
			subtotal = subtotal.Add(lineTotal)
		}

		discount := money.Zero()
		freight := money.Zero()
		order := &models.Order{
			ID:         uuid.New(),
			Number:     number,
			ClientID:   input.BuyerID,
			SupplierID: input.SupplierID,
			Status:     enums.OrderStatusPending,
			Subtotal:   subtotal,
			Discount:   discount,
			Freight:    freight,
			Total:      subtotal.Sub(discount).Add(freight),
		}
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := txRepo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		for _, line := range input.Lines {
			ok, err := txStock.Decrement(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				// Someone raced us between the gate read and this write.
				// Report the stock the decrement saw, not the stale gate
				// snapshot.
				product := products[line.ProductID]
				shortage := stock.Shortage{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   line.Quantity,
				}
				if current, readErr := txCatalog.FindProduct(ctx, line.ProductID); readErr == nil && current != nil {
					shortage.Available = current.Stock
				}
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
					WithDetails(map[string]any{"shortages": []stock.Shortage{shortage}})
			}
			if err := txStock.AppendMovement(ctx, &models.StockMovement{
				ID:          uuid.New(),
				ProductID:   line.ProductID,
				Type:        enums.StockMovementOut,
				Quantity:    line.Quantity,
				OrderNumber: &order.Number,
			}); err != nil {
				return err
			}
		}

		history := &models.OrderStatusHistory{
			ID:       uuid.New(),
			OrderID:  order.ID,
			ToStatus: enums.OrderStatusPending,
		}
		if input.Actor != nil {
			actorID := input.Actor.ID
			history.ActorID = &actorID
		}
		if err := txRepo.AppendStatusHistory(ctx, history); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data:          orderCreatedPayload(order, items, now),
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_created")
		}

		order.Items = items
		order.StatusHistory = []models.OrderStatusHistory{*history}
		committed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// CancelOrder restores stock and appends the trail entry atomically. Only
// pendente and confirmado orders may cancel.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var canceled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockAndAuthorize(ctx, tx, orderID, actor)
		if err != nil {
			return err
		}
		canceled, err = s.cancelLocked(ctx, tx, order, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// UpdateStatus advances the supplier-driven lifecycle. Moving to cancelado
// routes through the cancel path so stock restoration stays in one place.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if actor.Role == enums.ActorRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the supplier can update order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.lockAndAuthorize(ctx, tx, orderID, actor)
		if err != nil {
			return err
		}

		if next == enums.OrderStatusCanceled {
			updated, err = s.cancelLocked(ctx, tx, order, actor)
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		txRepo := s.repo.WithTx(tx)
		from := order.Status
		if err := txRepo.UpdateOrderStatus(ctx, order.ID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		actorID := actor.ID
		if err := txRepo.AppendStatusHistory(ctx, &models.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: &from,
			ToStatus:   next,
			ActorID:    &actorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		order.Status = next
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(&actor),
			Data: payloads.OrderStateChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.Number,
				ClientID:    order.ClientID,
				SupplierID:  order.SupplierID,
				FromStatus:  from,
				ToStatus:    next,
				ChangedAt:   s.now(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_state_changed")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetOrder loads an order the actor is allowed to see.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := authorizeActor(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders pages through the actor's own orders.
func (s *service) ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	switch actor.Role {
	case enums.ActorRoleBuyer:
		return s.repo.ListBuyerOrders(ctx, actor.ID, params)
	case enums.ActorRoleSupplier:
		return s.repo.ListSupplierOrders(ctx, actor.ID, params)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders")
	}
}

func (s *service) lockAndAuthorize(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.WithTx(tx).FindOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := authorizeActor(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// cancelLocked runs inside the caller's transaction against an order
// already locked and authorized. Stock restoration, status history, and
// the outbox write commit or roll back together.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor) (*models.Order, error) {
	if !order.Status.CanCancel() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be canceled in its current status").
			WithDetails(map[string]any{"status": order.Status})
	}

	txRepo := s.repo.WithTx(tx)
	txStock := s.stockRepo.WithTx(tx)

	for _, item := range order.Items {
		if item.ProductID == nil || item.Quantity <= 0 {
			continue
		}
		if err := txStock.Increment(ctx, *item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
		if err := txStock.AppendMovement(ctx, &models.StockMovement{
			ID:          uuid.New(),
			ProductID:   *item.ProductID,
			Type:        enums.StockMovementIn,
			Quantity:    item.Quantity,
			OrderNumber: &order.Number,
		}); err != nil {
			return nil, err
		}
	}

	from := order.Status
	if err := txRepo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusCanceled); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	actorID := actor.ID
	entry := &models.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   enums.OrderStatusCanceled,
	}
	if actorID != uuid.Nil {
		entry.ActorID = &actorID
	}
	if err := txRepo.AppendStatusHistory(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}

	order.Status = enums.OrderStatusCanceled
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(&actor),
		Data: payloads.OrderCanceledEvent{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			ClientID:    order.ClientID,
			SupplierID:  order.SupplierID,
			FromStatus:  from,
			CanceledAt:  s.now(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_canceled")
	}
	return order, nil
}

func authorizeActor(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleSupplier:
		if order.SupplierID == actor.ID {
			return nil
		}
	case enums.ActorRoleBuyer:
		if order.ClientID != nil && *order.ClientID == actor.ID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
}

func buildActor(actor *Actor) *outbox.ActorRef {
	if actor == nil || actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		ActorID: actor.ID,
		Role:    actor.Role.String(),
	}
}

func orderCreatedPayload(order *models.Order, items []models.OrderItem, committedAt time.Time) payloads.OrderCreatedEvent {
	snapshots := make([]payloads.OrderItemSnapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, payloads.OrderItemSnapshot{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			LineTotal:   item.LineTotal.String(),
			PriceSource: item.PriceSource,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ClientID:    order.ClientID,
		SupplierID:  order.SupplierID,
		Status:      order.Status,
		Subtotal:    order.Subtotal.String(),
		Discount:    order.Discount.String(),
		Freight:     order.Freight.String(),
		Total:       order.Total.String(),
		Items:       snapshots,
		CommittedAt: committedAt,
	}
}
