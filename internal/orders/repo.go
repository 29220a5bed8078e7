package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	"github.com/feirahub/marketplace-backend/pkg/pagination"
)

// Repository defines persistence for orders and their projections.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	NextOrderNumber(ctx context.Context, at time.Time) (string, error)
	ListBuyerOrders(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListSupplierOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// CreateOrder inserts the order row.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items", "StatusHistory").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderItems inserts the frozen line snapshots.
func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindOrder loads an order with its items and status trail.
func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate locks the order row for the duration of the caller's
// transaction so concurrent cancels serialize.
func (r *repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus persists the new status.
func (r *repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

// AppendStatusHistory writes one transition trail entry.
func (r *repository) AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// NextOrderNumber draws the next value from the order number sequence and
// renders it in the storefront's PED-YYYYMMDD-NNNN shape.
func (r *repository) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	var seq int64
	if err := r.db.WithContext(ctx).Raw("SELECT nextval('order_number_seq')").Scan(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PED-%s-%04d", at.UTC().Format("20060102"), seq), nil
}

// OrderList is one page of order summaries.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderSummary is the list-view projection of an order.
type OrderSummary struct {
	ID         uuid.UUID         `json:"id"`
	Number     string            `json:"number"`
	ClientID   *uuid.UUID        `json:"client_id,omitempty"`
	SupplierID uuid.UUID         `json:"supplier_id"`
	Status     enums.OrderStatus `json:"status"`
	Total      string            `json:"total"`
	ItemCount  int               `json:"item_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ListBuyerOrders pages through a buyer's orders, newest first.
func (r *repository) ListBuyerOrders(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listOrders(ctx, "client_id = ?", clientID, params)
}

// ListSupplierOrders pages through a supplier's orders, newest first.
func (r *repository) ListSupplierOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listOrders(ctx, "supplier_id = ?", supplierID, params)
}

func (r *repository) listOrders(ctx context.Context, scope string, scopeID uuid.UUID, params pagination.Params) (*OrderList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("orders o").
		Select([]string{
			"o.id",
			"o.number",
			"o.client_id",
			"o.supplier_id",
			"o.status",
			"o.total",
			"(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id) AS item_count",
			"o.created_at",
		}).
		Where("o."+scope, scopeID)

	if cursor != nil {
		qb = qb.Where("(o.created_at < ?) OR (o.created_at = ? AND o.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("o.created_at DESC").Order("o.id DESC").Limit(limitWithBuffer)

	var records []orderSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	rows := records
	nextCursor := ""
	if len(records) > pageSize {
		rows = records[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]OrderSummary, 0, len(rows))
	for _, record := range rows {
		summaries = append(summaries, record.toSummary())
	}
	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}

type orderSummaryRecord struct {
	ID         uuid.UUID
	Number     string
	ClientID   *uuid.UUID
	SupplierID uuid.UUID
	Status     enums.OrderStatus
	Total      string
	ItemCount  int
	CreatedAt  time.Time
}

func (r orderSummaryRecord) toSummary() OrderSummary {
	return OrderSummary{
		ID:         r.ID,
		Number:     r.Number,
		ClientID:   r.ClientID,
		SupplierID: r.SupplierID,
		Status:     r.Status,
		Total:      r.Total,
		ItemCount:  r.ItemCount,
		CreatedAt:  r.CreatedAt,
	}
}
