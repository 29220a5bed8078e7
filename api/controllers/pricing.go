package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/api/responses"
	"github.com/feirahub/marketplace-backend/internal/pricing"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/logger"
	"github.com/feirahub/marketplace-backend/pkg/money"
)

type priceResponse struct {
	ProductID   uuid.UUID         `json:"product_id"`
	UnitPrice   money.Money       `json:"unit_price"`
	PriceSource enums.PriceSource `json:"price_source"`
	PriceDetail string            `json:"price_detail,omitempty"`
}

// ResolveProductPrice returns the effective unit price the caller would pay.
// Buyers always see their own negotiated price; suppliers and admins can
// inspect a specific client's price via the client_id query parameter.
func ResolveProductPrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buyerID *uuid.UUID
		switch actor.Role {
		case enums.ActorRoleBuyer:
			id := actor.ID
			buyerID = &id
		default:
			if raw := strings.TrimSpace(r.URL.Query().Get("client_id")); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client_id"))
					return
				}
				buyerID = &parsed
			}
		}

		result, err := svc.ResolvePrice(r.Context(), productID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, priceResponse{
			ProductID:   result.ProductID,
			UnitPrice:   result.UnitPrice,
			PriceSource: result.Source,
			PriceDetail: result.Detail,
		})
	}
}
