// Package orders serves the caller's order history and the order status page
// the storefront polls after checkout.
package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	"github.com/LLTIGER/pulse-architects-sub001/api/validators"
	internalorders "github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

const maxCursorLen = 256

// handler adapts a per-caller order operation into an http.HandlerFunc,
// taking care of the service and identity checks both routes share.
func handler(svc internalorders.Service, logg *logger.Logger, serve func(r *http.Request, identity *middleware.Identity) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		identity := middleware.IdentityFromContext(ctx)
		if identity == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		body, err := serve(r, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// Detail returns one order. The storefront polls it after the gateway
// redirects back, until the webhook has fulfilled the order.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return handler(svc, logg, func(r *http.Request, identity *middleware.Identity) (any, error) {
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			return nil, err
		}
		return svc.GetForUser(r.Context(), identity.UserID, orderID)
	})
}

// List pages through the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return handler(svc, logg, func(r *http.Request, identity *middleware.Identity) (any, error) {
		limit, err := validators.QueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		cursor, err := validators.QueryString(r, "cursor", "", maxCursorLen)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), identity.UserID, pagination.Params{Limit: limit, Cursor: cursor})
	})
}
