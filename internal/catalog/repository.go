// Package catalog exposes the read contract the pricing and cart paths
// resolve against: products, buyer links, price lists and custom prices.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feirahub/marketplace-backend/pkg/db/models"
)

// Repository wires together the catalog read helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindProduct loads the product without associations. Returns nil when the
// product does not exist.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// FindProducts loads the products matching the given ids, keyed by id.
// Missing ids are simply absent from the map.
func (r *Repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// FindSupplier loads a supplier row. Returns nil when absent.
func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

// FindClient loads a buyer row. Returns nil when absent.
func (r *Repository) FindClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// FindLink loads the buyer↔supplier relationship with its assigned price
// list preloaded. Returns nil when the pair is not linked.
func (r *Repository) FindLink(ctx context.Context, clientID, supplierID uuid.UUID) (*models.ClientSupplierLink, error) {
	var link models.ClientSupplierLink
	err := r.db.WithContext(ctx).
		Preload("PriceList").
		First(&link, "client_id = ? AND supplier_id = ?", clientID, supplierID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// FindPriceListItem loads the per-product entry of a price list, if any.
func (r *Repository) FindPriceListItem(ctx context.Context, priceListID, productID uuid.UUID) (*models.PriceListItem, error) {
	var item models.PriceListItem
	err := r.db.WithContext(ctx).
		First(&item, "price_list_id = ? AND product_id = ?", priceListID, productID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FindCustomPrice loads the pinned price for one (buyer, product) pair, if any.
func (r *Repository) FindCustomPrice(ctx context.Context, clientID, productID uuid.UUID) (*models.CustomPrice, error) {
	var custom models.CustomPrice
	err := r.db.WithContext(ctx).
		First(&custom, "client_id = ? AND product_id = ?", clientID, productID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &custom, nil
}
