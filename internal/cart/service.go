// Package cart computes a priced quote for one supplier's cart without
// touching stock. The commit path in internal/orders re-runs the same
// resolution inside a transaction; a cart result is never authoritative.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/internal/pricing"
	"github.com/feirahub/marketplace-backend/internal/stock"
	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/money"
)

type supplierLoader interface {
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
}

type availabilityGate interface {
	CheckAvailability(ctx context.Context, supplierID uuid.UUID, lines []stock.Line) (map[uuid.UUID]*models.Product, error)
}

type priceResolver interface {
	ResolveForProduct(ctx context.Context, product *models.Product, buyerID *uuid.UUID) (*pricing.PriceResult, error)
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Line is a priced cart line with its pricing provenance.
type Line struct {
	ProductID   uuid.UUID         `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   money.Money       `json:"unit_price"`
	LineTotal   money.Money       `json:"line_total"`
	PriceSource enums.PriceSource `json:"price_source"`
	PriceDetail string            `json:"price_detail"`
}

// Result is the computed cart. Discount and Freight are reserved extension
// points and stay zero for now; Total already accounts for them.
type Result struct {
	SupplierID uuid.UUID   `json:"supplier_id"`
	BuyerID    *uuid.UUID  `json:"buyer_id,omitempty"`
	Lines      []Line      `json:"lines"`
	Subtotal   money.Money `json:"subtotal"`
	Discount   money.Money `json:"discount"`
	Freight    money.Money `json:"freight"`
	Total      money.Money `json:"total"`
}

// Service computes cart quotes.
type Service interface {
	CalculateCart(ctx context.Context, supplierID uuid.UUID, buyerID *uuid.UUID, lines []LineInput) (*Result, error)
}

type service struct {
	suppliers supplierLoader
	gate      availabilityGate
	resolver  priceResolver
}

// NewService builds a cart service backed by the provided collaborators.
func NewService(suppliers supplierLoader, gate availabilityGate, resolver priceResolver) (Service, error) {
	if suppliers == nil {
		return nil, fmt.Errorf("supplier loader required")
	}
	if gate == nil {
		return nil, fmt.Errorf("availability gate required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &service{suppliers: suppliers, gate: gate, resolver: resolver}, nil
}

// CalculateCart validates the request through the ordered gates and prices
// every line. A single failing line fails the whole cart.
func (s *service) CalculateCart(ctx context.Context, supplierID uuid.UUID, buyerID *uuid.UUID, lines []LineInput) (*Result, error) {
	if supplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}

	supplier, err := s.suppliers.FindSupplier(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if !supplier.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeResourceInactive, "supplier is inactive")
	}

	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}

	gateLines := make([]stock.Line, 0, len(lines))
	for _, line := range lines {
		gateLines = append(gateLines, stock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	products, err := s.gate.CheckAvailability(ctx, supplierID, gateLines)
	if err != nil {
		return nil, err
	}

	result := &Result{
		SupplierID: supplierID,
		BuyerID:    buyerID,
		Lines:      make([]Line, 0, len(lines)),
		Subtotal:   money.Zero(),
		Discount:   money.Zero(),
		Freight:    money.Zero(),
	}
	for _, line := range lines {
		product := products[line.ProductID]
		price, err := s.resolver.ResolveForProduct(ctx, product, buyerID)
		if err != nil {
			return nil, err
		}
		lineTotal := price.UnitPrice.MulQty(int64(line.Quantity))
		result.Lines = append(result.Lines, Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   price.UnitPrice,
			LineTotal:   lineTotal,
			PriceSource: price.Source,
			PriceDetail: price.Detail,
		})
		result.Subtotal = result.Subtotal.Add(lineTotal)
	}

	result.Total = result.Subtotal.Sub(result.Discount).Add(result.Freight)
	return result, nil
}
