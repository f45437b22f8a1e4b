package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/LLTIGER/pulse-architects-sub001/internal/checkout"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

type stubCheckoutService struct {
	identity *checkoutsvc.Identity
	input    checkoutsvc.Input
	result   *checkoutsvc.Result
	err      error
}

func (s *stubCheckoutService) Initiate(_ context.Context, identity *checkoutsvc.Identity, input checkoutsvc.Input) (*checkoutsvc.Result, error) {
	s.identity = identity
	s.input = input
	return s.result, s.err
}

func TestCheckoutReturnsSession(t *testing.T) {
	orderID := uuid.New()
	assetID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		SessionID:  "cs_test_1",
		SessionURL: "https://checkout.stripe.com/c/pay/cs_test_1",
		OrderID:    orderID,
		Amount:     decimal.RequireFromString("99.99"),
	}}
	identity := buyer()

	body := `{"assetId":"` + assetID.String() + `","licenseTier":"STANDARD","returnUrl":"https://plans.example.com/p/1"}`
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/checkout", body, identity, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.JSONEq(t, `{
		"success": true,
		"sessionId": "cs_test_1",
		"sessionUrl": "https://checkout.stripe.com/c/pay/cs_test_1",
		"orderId": "`+orderID.String()+`",
		"amount": 99.99
	}`, rec.Body.String())

	assert.Equal(t, assetID, svc.input.AssetID)
	assert.Equal(t, "STANDARD", svc.input.Tier)
	assert.Equal(t, "https://plans.example.com/p/1", svc.input.ReturnURL)
	require.NotNil(t, svc.identity)
	assert.Equal(t, identity.UserID, svc.identity.UserID)
	assert.Equal(t, identity.Email, svc.identity.Email)
}

func TestCheckoutFreeTier(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.Result{IsFree: true}}

	body := `{"assetId":"` + uuid.NewString() + `","licenseTier":"PREVIEW"}`
	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/checkout", body, buyer(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"isFree":true}`, rec.Body.String())
}

func TestCheckoutErrors(t *testing.T) {
	validBody := `{"assetId":"` + uuid.NewString() + `","licenseTier":"STANDARD"}`

	tests := []struct {
		name     string
		body     string
		anon     bool
		svcErr   error
		wantCode int
		wantErr  pkgerrors.Code
	}{
		{name: "anonymous", body: validBody, anon: true, wantCode: http.StatusUnauthorized, wantErr: pkgerrors.CodeUnauthorized},
		{name: "malformed body", body: `{"assetId":`, wantCode: http.StatusBadRequest, wantErr: pkgerrors.CodeValidation},
		{name: "missing tier", body: `{"assetId":"` + uuid.NewString() + `"}`, wantCode: http.StatusBadRequest, wantErr: pkgerrors.CodeValidation},
		{name: "bad asset id", body: `{"assetId":"plan-1","licenseTier":"STANDARD"}`, wantCode: http.StatusBadRequest, wantErr: pkgerrors.CodeValidation},
		{name: "client supplied price", body: `{"assetId":"` + uuid.NewString() + `","licenseTier":"STANDARD","price":1}`, wantCode: http.StatusBadRequest, wantErr: pkgerrors.CodeValidation},
		{name: "asset missing", body: validBody, svcErr: pkgerrors.New(pkgerrors.CodeNotFound, "asset not found"), wantCode: http.StatusNotFound, wantErr: pkgerrors.CodeNotFound},
		{name: "already owned", body: validBody, svcErr: pkgerrors.New(pkgerrors.CodeDuplicateEntitlement, "already licensed"), wantCode: http.StatusBadRequest, wantErr: pkgerrors.CodeDuplicateEntitlement},
		{name: "gateway down", body: validBody, svcErr: pkgerrors.New(pkgerrors.CodeDependency, "gateway"), wantCode: http.StatusServiceUnavailable, wantErr: pkgerrors.CodeDependency},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCheckoutService{err: tc.svcErr, result: &checkoutsvc.Result{}}
			identity := buyer()
			if tc.anon {
				identity = nil
			}
			rec := httptest.NewRecorder()
			Checkout(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/checkout", tc.body, identity, nil))
			require.Equal(t, tc.wantCode, rec.Code, rec.Body.String())

			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, string(tc.wantErr), payload.Error.Code)
		})
	}
}
