package controllers

import (
	"context"
	"net/http"

	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	"github.com/LLTIGER/pulse-architects-sub001/api/validators"
	"github.com/LLTIGER/pulse-architects-sub001/internal/licenses"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

// LicenseLister is satisfied by *licenses.Service.
type LicenseLister interface {
	List(ctx context.Context, params licenses.ListParams) (*licenses.ListResult, error)
}

// LicenseList returns the caller's licenses, newest first.
func LicenseList(svc LicenseLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		identity := middleware.IdentityFromContext(r.Context())
		if identity == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cursor, err := validators.QueryString(r, "cursor", "", 256)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), licenses.ListParams{
			UserID: identity.UserID,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: cursor,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
