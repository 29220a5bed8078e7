package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feirahub/marketplace-backend/api/middleware"
	internalorders "github.com/feirahub/marketplace-backend/internal/orders"
	"github.com/feirahub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/feirahub/marketplace-backend/pkg/errors"
)

// actorFromRequest reads the authenticated actor seeded by the auth middleware.
func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	rawID := middleware.ActorIDFromContext(r.Context())
	if rawID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	actorID, err := uuid.Parse(rawID)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}
	return internalorders.Actor{ID: actorID, Role: role}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return parsed, nil
}
