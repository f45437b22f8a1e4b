package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/api/middleware"
	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	"github.com/LLTIGER/pulse-architects-sub001/api/validators"
	checkoutsvc "github.com/LLTIGER/pulse-architects-sub001/internal/checkout"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

// Checkout opens a hosted payment session for one asset at one license tier.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		identity := middleware.IdentityFromContext(r.Context())
		if identity == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assetID, err := validators.ParseUUID(payload.AssetID, "assetId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.Input{AssetID: assetID, Tier: payload.LicenseTier}
		if payload.ReturnURL != nil {
			input.ReturnURL = *payload.ReturnURL
		}

		result, err := svc.Initiate(r.Context(), &checkoutsvc.Identity{
			UserID: identity.UserID,
			Email:  identity.Email,
			Name:   identity.Name,
		}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	AssetID     string  `json:"assetId" validate:"required"`
	LicenseTier string  `json:"licenseTier" validate:"required"`
	ReturnURL   *string `json:"returnUrl,omitempty" validate:"omitempty,max=2048"`
}

type checkoutResponse struct {
	Success    bool        `json:"success"`
	SessionID  string      `json:"sessionId,omitempty"`
	SessionURL string      `json:"sessionUrl,omitempty"`
	OrderID    *uuid.UUID  `json:"orderId,omitempty"`
	Amount     json.Number `json:"amount,omitempty"`
	IsFree     bool        `json:"isFree,omitempty"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	if result.IsFree {
		return checkoutResponse{Success: true, IsFree: true}
	}
	orderID := result.OrderID
	return checkoutResponse{
		Success:    true,
		SessionID:  result.SessionID,
		SessionURL: result.SessionURL,
		OrderID:    &orderID,
		Amount:     json.Number(result.Amount.StringFixed(2)),
	}
}
