package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// userFromContext returns the caller id set by middleware.Auth.
func userFromContext(r *http.Request) (uuid.UUID, error) {
	caller, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return caller.UserID, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return validators.ParseUUIDParam(chi.URLParam(r, name), name)
}

func unavailable(name string) error {
	return pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name)
}
