// Package pricing resolves the unit price a buyer pays for a product by
// walking the override hierarchy: custom price, price-list item override,
// price-list blanket discount, supplier base price. First match wins.
package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/pkg/db/models"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/money"
)

type catalogReader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindLink(ctx context.Context, clientID, supplierID uuid.UUID) (*models.ClientSupplierLink, error)
	FindPriceListItem(ctx context.Context, priceListID, productID uuid.UUID) (*models.PriceListItem, error)
	FindCustomPrice(ctx context.Context, clientID, productID uuid.UUID) (*models.CustomPrice, error)
}

// PriceResult is a resolved price together with its provenance.
type PriceResult struct {
	ProductID uuid.UUID
	UnitPrice money.Money
	Source    enums.PriceSource
	Detail    string
}

// Service exposes price resolution.
type Service interface {
	ResolvePrice(ctx context.Context, productID uuid.UUID, buyerID *uuid.UUID) (*PriceResult, error)
	ResolveForProduct(ctx context.Context, product *models.Product, buyerID *uuid.UUID) (*PriceResult, error)
}

type service struct {
	catalog catalogReader
}

// NewService builds a pricing service backed by the catalog read contract.
func NewService(catalog catalogReader) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	return &service{catalog: catalog}, nil
}

// ResolvePrice loads the product and resolves its price for the buyer.
// An absent buyer resolves to the supplier base price.
func (s *service) ResolvePrice(ctx context.Context, productID uuid.UUID, buyerID *uuid.UUID) (*PriceResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	return s.ResolveForProduct(ctx, product, buyerID)
}

// ResolveForProduct resolves the price for an already loaded product. The
// cart and order paths use this form after batch-loading their lines.
func (s *service) ResolveForProduct(ctx context.Context, product *models.Product, buyerID *uuid.UUID) (*PriceResult, error) {
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeResourceInactive, "product is inactive").
			WithDetails(map[string]any{"product_id": product.ID})
	}

	base := baseResult(product)
	if buyerID == nil || *buyerID == uuid.Nil {
		return base, nil
	}

	custom, err := s.catalog.FindCustomPrice(ctx, *buyerID, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load custom price")
	}
	if custom != nil {
		return &PriceResult{
			ProductID: product.ID,
			UnitPrice: custom.Price,
			Source:    enums.PriceSourceCustom,
			Detail:    "custom price for buyer",
		}, nil
	}

	link, err := s.catalog.FindLink(ctx, *buyerID, product.SupplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer supplier link")
	}
	if link == nil || link.PriceListID == nil || link.PriceList == nil {
		return base, nil
	}

	list := link.PriceList
	if !list.IsActive {
		// An inactive list never blocks the sale; it just stops discounting.
		return base, nil
	}

	item, err := s.catalog.FindPriceListItem(ctx, list.ID, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price list item")
	}
	if item != nil && item.SpecialPrice != nil {
		return &PriceResult{
			ProductID: product.ID,
			UnitPrice: *item.SpecialPrice,
			Source:    enums.PriceSourceListItem,
			Detail:    fmt.Sprintf("price list %q (%s) item override", list.Name, list.ID),
		}, nil
	}

	discounted, err := applyBlanketDiscount(product.BasePrice, list)
	if err != nil {
		return nil, err
	}
	return &PriceResult{
		ProductID: product.ID,
		UnitPrice: discounted,
		Source:    enums.PriceSourceListDiscount,
		Detail:    fmt.Sprintf("price list %q (%s) %s discount of %s", list.Name, list.ID, list.DiscountKind, list.DiscountValue),
	}, nil
}

func baseResult(product *models.Product) *PriceResult {
	return &PriceResult{
		ProductID: product.ID,
		UnitPrice: product.BasePrice,
		Source:    enums.PriceSourceBase,
		Detail:    "supplier base price",
	}
}

// applyBlanketDiscount applies the list-wide discount to the base price,
// clamping the result at zero. The amount stays unrounded until persisted
// or rendered.
func applyBlanketDiscount(base money.Money, list *models.PriceList) (money.Money, error) {
	switch list.DiscountKind {
	case enums.DiscountKindPercentage:
		return base.PercentOff(list.DiscountValue).ClampZero(), nil
	case enums.DiscountKindFixed:
		return base.Sub(money.New(list.DiscountValue)).ClampZero(), nil
	default:
		return money.Zero(), pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("price list %s has unknown discount kind %q", list.ID, list.DiscountKind))
	}
}
