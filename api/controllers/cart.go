package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/api/responses"
	"github.com/feirahub/marketplace-backend/api/validators"
	"github.com/feirahub/marketplace-backend/internal/cart"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
	"github.com/feirahub/marketplace-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type calculateCartRequest struct {
	SupplierID string            `json:"supplier_id" validate:"required,uuid4"`
	ClientID   *string           `json:"client_id,omitempty" validate:"omitempty,uuid4"`
	Items      []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CalculateCart prices the requested lines without persisting anything.
func CalculateCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload calculateCartRequest
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

		lines := make([]cart.LineInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
				return
			}
			lines = append(lines, cart.LineInput{ProductID: productID, Quantity: item.Quantity})
		}

		result, err := svc.CalculateCart(r.Context(), supplierID, buyerID, lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// resolveBuyerID pins buyers to their own identity; suppliers and admins may
// price on behalf of a specific client.
func resolveBuyerID(role enums.ActorRole, actorID uuid.UUID, clientID *string) (*uuid.UUID, error) {
	if role == enums.ActorRoleBuyer {
		id := actorID
		return &id, nil
	}
	if clientID == nil || *clientID == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(*clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client_id")
	}
	return &parsed, nil
}
