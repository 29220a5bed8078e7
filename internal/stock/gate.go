// Package stock guards order flows against overselling. The availability
// gate is all-or-nothing: a single short line fails the whole request with
// a full shortage report.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
)

type productsReader interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// Line is one requested (product, quantity) pair.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Shortage describes one line that cannot be fulfilled at current stock.
type Shortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Available   int       `json:"available"`
	Requested   int       `json:"requested"`
}

// Gate validates that every requested line belongs to the supplier, is
// active, and is fully coverable by current stock.
type Gate interface {
	CheckAvailability(ctx context.Context, supplierID uuid.UUID, lines []Line) (map[uuid.UUID]*models.Product, error)
}

type gate struct {
	products productsReader
}

// NewGate builds an availability gate over the catalog read contract.
func NewGate(products productsReader) (Gate, error) {
	if products == nil {
		return nil, fmt.Errorf("products reader required")
	}
	return &gate{products: products}, nil
}

// CheckAvailability loads every requested product and verifies ownership,
// active flag, and stock. On success the loaded products are returned so
// callers can price the same snapshot they validated.
func (g *gate) CheckAvailability(ctx context.Context, supplierID uuid.UUID, lines []Line) (map[uuid.UUID]*models.Product, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer").
				WithDetails(map[string]any{"product_id": line.ProductID, "quantity": line.Quantity})
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		seen[line.ProductID] = line.Quantity
		ids = append(ids, line.ProductID)
	}

	products, err := g.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || product.SupplierID != supplierID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeResourceInactive, "product is inactive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
	}

	var shortages []Shortage
	for _, line := range lines {
		product := products[line.ProductID]
		if product.Stock < line.Quantity {
			shortages = append(shortages, Shortage{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more items").
			WithDetails(map[string]any{"shortages": shortages})
	}

	return products, nil
}
