package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/feirahub/marketplace-backend/internal/catalog"
	"github.com/feirahub/marketplace-backend/internal/stock"
	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/money"
	"github.com/feirahub/marketplace-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// testRepo wraps the real repository so the tests can run on sqlite, which
// has neither sequences nor row locks.
type testRepo struct {
	Repository
	counter *int
}

func (r *testRepo) WithTx(tx *gorm.DB) Repository {
	return &testRepo{Repository: r.Repository.WithTx(tx), counter: r.counter}
}

func (r *testRepo) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	*r.counter++
	return fmt.Sprintf("PED-%s-%04d", at.UTC().Format("20060102"), *r.counter), nil
}

func (r *testRepo) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.Repository.FindOrder(ctx, id)
}

type ordersFixture struct {
	db       *gorm.DB
	service  Service
	supplier *models.Supplier
	buyer    *models.Client
	product  *models.Product
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS suppliers (
  id TEXT PRIMARY KEY, company_name TEXT NOT NULL, email TEXT NOT NULL,
  verified INTEGER NOT NULL DEFAULT 0, is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY, supplier_id TEXT NOT NULL, sku TEXT NOT NULL,
  name TEXT NOT NULL, description TEXT, base_price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0, min_stock INTEGER NOT NULL DEFAULT 0,
  max_stock INTEGER NOT NULL DEFAULT 0, is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS price_lists (
  id TEXT PRIMARY KEY, supplier_id TEXT NOT NULL, name TEXT NOT NULL,
  discount_kind TEXT NOT NULL, discount_value TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS price_list_items (
  id TEXT PRIMARY KEY, price_list_id TEXT NOT NULL, product_id TEXT NOT NULL,
  special_price TEXT, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS client_supplier_links (
  id TEXT PRIMARY KEY, client_id TEXT NOT NULL, supplier_id TEXT NOT NULL,
  price_list_id TEXT, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS custom_prices (
  id TEXT PRIMARY KEY, client_id TEXT NOT NULL, product_id TEXT NOT NULL,
  price TEXT NOT NULL, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY, number TEXT NOT NULL, client_id TEXT, supplier_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pendente', subtotal TEXT NOT NULL, discount TEXT NOT NULL,
  freight TEXT NOT NULL, total TEXT NOT NULL, created_at DATETIME, updated_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY, order_id TEXT NOT NULL, product_id TEXT,
  product_name TEXT NOT NULL, quantity INTEGER NOT NULL, unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL, price_source TEXT NOT NULL, created_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY, order_id TEXT NOT NULL, from_status TEXT, to_status TEXT NOT NULL,
  actor_id TEXT, note TEXT, created_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS stock_movements (
  id TEXT PRIMARY KEY, product_id TEXT NOT NULL, type TEXT NOT NULL,
  quantity INTEGER NOT NULL, order_number TEXT, note TEXT, created_at DATETIME);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY, event_type TEXT NOT NULL, aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL, payload TEXT NOT NULL, created_at DATETIME,
  published_at DATETIME, attempt_count INTEGER NOT NULL DEFAULT 0, last_error TEXT);`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	db := setupOrdersTestDB(t)

	supplier := &models.Supplier{
		ID:          uuid.New(),
		CompanyName: "Distribuidora Horizonte",
		Email:       fmt.Sprintf("fh_test_%s@example.com", uuid.NewString()),
		IsActive:    true,
	}
	if err := db.Create(supplier).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	buyer := &models.Client{
		ID:       uuid.New(),
		Name:     "Mercado Central",
		Email:    fmt.Sprintf("fh_test_%s@example.com", uuid.NewString()),
		IsActive: true,
	}
	if err := db.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	product := &models.Product{
		ID:         uuid.New(),
		SupplierID: supplier.ID,
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:       "Arroz Tipo 1 5kg",
		BasePrice:  money.MustFromString("100.00"),
		Stock:      10,
		IsActive:   true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	counter := 0
	repo := &testRepo{Repository: NewRepository(db), counter: &counter}
	outboxSvc := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(repo, &gormTxRunner{db: db}, catalog.NewRepository(db), stock.NewRepository(db), outboxSvc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &ordersFixture{db: db, service: svc, supplier: supplier, buyer: buyer, product: product}
}

func (f *ordersFixture) assignPriceList(t *testing.T, kind enums.DiscountKind, value string) {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse discount: %v", err)
	}
	list := &models.PriceList{
		ID:            uuid.New(),
		SupplierID:    f.supplier.ID,
		Name:          "Atacado",
		DiscountKind:  kind,
		DiscountValue: d,
		IsActive:      true,
	}
	if err := f.db.Create(list).Error; err != nil {
		t.Fatalf("create price list: %v", err)
	}
	link := &models.ClientSupplierLink{
		ID:          uuid.New(),
		ClientID:    f.buyer.ID,
		SupplierID:  f.supplier.ID,
		PriceListID: &list.ID,
	}
	if err := f.db.Create(link).Error; err != nil {
		t.Fatalf("create link: %v", err)
	}
}

func (f *ordersFixture) productStock(t *testing.T) int {
	t.Helper()

	var product models.Product
	if err := f.db.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func (f *ordersFixture) movements(t *testing.T) []models.StockMovement {
	t.Helper()

	var rows []models.StockMovement
	if err := f.db.Where("product_id = ?", f.product.ID).Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	return rows
}

func (f *ordersFixture) outboxEvents(t *testing.T) []models.OutboxEvent {
	t.Helper()

	var rows []models.OutboxEvent
	if err := f.db.Order("created_at ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	return rows
}

func TestCommitOrderFreezesPricesAndDecrementsStock(t *testing.T) {
	f := newOrdersFixture(t)
	f.assignPriceList(t, enums.DiscountKindPercentage, "10")

	order, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		BuyerID:    &f.buyer.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 3}},
		Actor:      &Actor{ID: f.buyer.ID, Role: enums.ActorRoleBuyer},
	})
	if err != nil {
		t.Fatalf("commit order: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pendente, got %s", order.Status)
	}
	if got := order.Subtotal.String(); got != "270.00" {
		t.Fatalf("expected subtotal 270.00, got %s", got)
	}
	if got := order.Total.String(); got != "270.00" {
		t.Fatalf("expected total 270.00, got %s", got)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice.String() != "90.00" {
		t.Fatalf("expected frozen unit price 90.00, got %+v", order.Items)
	}
	if order.Items[0].PriceSource != enums.PriceSourceListDiscount {
		t.Fatalf("expected list-discount source, got %s", order.Items[0].PriceSource)
	}
	if got := f.productStock(t); got != 7 {
		t.Fatalf("expected stock 7, got %d", got)
	}

	moves := f.movements(t)
	if len(moves) != 1 || moves[0].Type != enums.StockMovementOut || moves[0].Quantity != 3 {
		t.Fatalf("expected one saida movement of 3, got %+v", moves)
	}
	if moves[0].OrderNumber == nil || *moves[0].OrderNumber != order.Number {
		t.Fatalf("movement must reference order number %s", order.Number)
	}

	events := f.outboxEvents(t)
	if len(events) != 1 || events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order_created event, got %+v", events)
	}

	// Raising the base price afterwards must not touch the committed order.
	if err := f.db.Model(&models.Product{}).Where("id = ?", f.product.ID).
		Update("base_price", "200.00").Error; err != nil {
		t.Fatalf("update base price: %v", err)
	}
	reloaded, err := f.service.GetOrder(context.Background(), order.ID, Actor{ID: f.buyer.ID, Role: enums.ActorRoleBuyer})
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if got := reloaded.Items[0].UnitPrice.String(); got != "90.00" {
		t.Fatalf("committed price must stay frozen at 90.00, got %s", got)
	}
	if got := reloaded.Total.String(); got != "270.00" {
		t.Fatalf("committed total must stay frozen at 270.00, got %s", got)
	}
}

func TestCommitOrderInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 11}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	var orderCount int64
	if err := f.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders persisted, got %d", orderCount)
	}
	if got := f.productStock(t); got != 10 {
		t.Fatalf("stock must stay at 10, got %d", got)
	}
	if moves := f.movements(t); len(moves) != 0 {
		t.Fatalf("expected no movements, got %+v", moves)
	}
}

func TestCommitOrderConcurrentSaleReportsCurrentStock(t *testing.T) {
	f := newOrdersFixture(t)

	// Stand in for a competing sale that lands after the availability check
	// but before the conditional decrement: the order insert happens between
	// the two, so a trigger on it plays the other writer.
	trigger := fmt.Sprintf(`CREATE TRIGGER competing_sale AFTER INSERT ON orders
BEGIN
  UPDATE products SET stock = 2 WHERE id = '%s';
END;`, f.product.ID)
	if err := f.db.Exec(trigger).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	_, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		BuyerID:    &f.buyer.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 5}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}

	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected structured details, got %T", typed.Details())
	}
	shortages, ok := details["shortages"].([]stock.Shortage)
	if !ok || len(shortages) != 1 {
		t.Fatalf("expected one shortage, got %v", details["shortages"])
	}
	if shortages[0].ProductID != f.product.ID || shortages[0].Requested != 5 {
		t.Fatalf("unexpected shortage %+v", shortages[0])
	}
	if shortages[0].Available != 2 {
		t.Fatalf("shortage must report the stock the decrement saw, got %d", shortages[0].Available)
	}

	var orderCount int64
	if err := f.db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected full rollback, got %d orders", orderCount)
	}
	if got := f.productStock(t); got != 10 {
		t.Fatalf("rollback must undo the competing write too, got stock %d", got)
	}
}

func TestCancelOrderRestoresStockExactlyOnce(t *testing.T) {
	f := newOrdersFixture(t)

	order, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		BuyerID:    &f.buyer.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("commit order: %v", err)
	}
	if got := f.productStock(t); got != 6 {
		t.Fatalf("expected stock 6 after commit, got %d", got)
	}

	actor := Actor{ID: f.buyer.ID, Role: enums.ActorRoleBuyer}
	canceled, err := f.service.CancelOrder(context.Background(), order.ID, actor)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected cancelado, got %s", canceled.Status)
	}
	if got := f.productStock(t); got != 10 {
		t.Fatalf("expected stock restored to 10, got %d", got)
	}

	moves := f.movements(t)
	if len(moves) != 2 {
		t.Fatalf("expected saida + entrada, got %+v", moves)
	}
	var entrada *models.StockMovement
	for i := range moves {
		if moves[i].Type == enums.StockMovementIn {
			entrada = &moves[i]
		}
	}
	if entrada == nil || entrada.Quantity != 4 {
		t.Fatalf("expected entrada of 4, got %+v", moves)
	}
	if entrada.OrderNumber == nil || *entrada.OrderNumber != order.Number {
		t.Fatalf("entrada must reference order number %s", order.Number)
	}

	// Second cancel must fail and must not restore again.
	_, err = f.service.CancelOrder(context.Background(), order.ID, actor)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT on double cancel, got %v", err)
	}
	if got := f.productStock(t); got != 10 {
		t.Fatalf("stock must stay at 10 after rejected cancel, got %d", got)
	}

	events := f.outboxEvents(t)
	if len(events) != 2 || events[1].EventType != enums.EventOrderCanceled {
		t.Fatalf("expected order_created + order_canceled, got %+v", events)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newOrdersFixture(t)

	order, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		BuyerID:    &f.buyer.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("commit order: %v", err)
	}

	supplierActor := Actor{ID: f.supplier.ID, Role: enums.ActorRoleSupplier}

	// Skipping confirmado is not a legal transition.
	_, err = f.service.UpdateStatus(context.Background(), order.ID, enums.OrderStatusDelivered, supplierActor)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for pendente->entregue, got %v", err)
	}

	// Buyers do not drive the fulfillment lifecycle.
	_, err = f.service.UpdateStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, Actor{ID: f.buyer.ID, Role: enums.ActorRoleBuyer})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for buyer transition, got %v", err)
	}

	updated, err := f.service.UpdateStatus(context.Background(), order.ID, enums.OrderStatusConfirmed, supplierActor)
	if err != nil {
		t.Fatalf("confirm order: %v", err)
	}
	if updated.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmado, got %s", updated.Status)
	}

	if _, err := f.service.UpdateStatus(context.Background(), order.ID, enums.OrderStatusShipped, supplierActor); err != nil {
		t.Fatalf("ship order: %v", err)
	}

	// Shipped orders can no longer cancel; stock stays committed.
	_, err = f.service.CancelOrder(context.Background(), order.ID, supplierActor)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT canceling enviado, got %v", err)
	}

	var trail []models.OrderStatusHistory
	if err := f.db.Where("order_id = ?", order.ID).Order("created_at ASC").Find(&trail).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("expected 3 trail entries, got %d", len(trail))
	}
	if trail[2].ToStatus != enums.OrderStatusShipped || trail[2].FromStatus == nil || *trail[2].FromStatus != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected last trail entry %+v", trail[2])
	}
}

func TestGetOrderAuthorization(t *testing.T) {
	f := newOrdersFixture(t)

	order, err := f.service.CommitOrder(context.Background(), CommitOrderInput{
		SupplierID: f.supplier.ID,
		BuyerID:    &f.buyer.ID,
		Lines:      []LineInput{{ProductID: f.product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("commit order: %v", err)
	}

	_, err = f.service.GetOrder(context.Background(), order.ID, Actor{ID: uuid.New(), Role: enums.ActorRoleBuyer})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN for foreign buyer, got %v", err)
	}

	if _, err := f.service.GetOrder(context.Background(), order.ID, Actor{ID: f.supplier.ID, Role: enums.ActorRoleSupplier}); err != nil {
		t.Fatalf("supplier read: %v", err)
	}
	if _, err := f.service.GetOrder(context.Background(), order.ID, Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}
