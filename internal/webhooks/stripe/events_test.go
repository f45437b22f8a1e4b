package stripewebhook

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

func TestDecodeEvent(t *testing.T) {
	orderID := uuid.New()

	decoded, err := DecodeEvent(stripeEvent(t, "evt_1", stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":             "cs_1",
		"payment_intent": "pi_1",
		"metadata":       map[string]string{"orderId": orderID.String()},
	}))
	require.NoError(t, err)
	completed, ok := decoded.(CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "cs_1", completed.SessionID)
	assert.Equal(t, "pi_1", completed.PaymentIntentID)
	assert.Equal(t, orderID.String(), completed.Metadata["orderId"])

	decoded, err = DecodeEvent(stripeEvent(t, "evt_2", stripe.EventTypePaymentIntentSucceeded, map[string]any{
		"id":       "pi_2",
		"metadata": map[string]string{"orderId": orderID.String()},
	}))
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded{PaymentIntentID: "pi_2", OrderID: orderID}, decoded)

	decoded, err = DecodeEvent(stripeEvent(t, "evt_3", stripe.EventTypeChargeDisputeCreated, map[string]any{
		"id":             "dp_3",
		"payment_intent": "pi_3",
		"reason":         "fraudulent",
	}))
	require.NoError(t, err)
	assert.Equal(t, DisputeCreated{PaymentIntentID: "pi_3", Reason: "fraudulent"}, decoded)

	decoded, err = DecodeEvent(stripeEvent(t, "evt_4", stripe.EventType("invoice.paid"), map[string]any{"id": "in_4"}))
	require.NoError(t, err)
	assert.Equal(t, Ignored{Type: "invoice.paid"}, decoded)

	_, err = DecodeEvent(&stripe.Event{Type: stripe.EventTypeCheckoutSessionCompleted})
	require.Error(t, err)
}

func TestParseCheckoutMetadata(t *testing.T) {
	orderID, assetID, userID := uuid.New(), uuid.New(), uuid.New()
	valid := map[string]string{
		"orderId":     orderID.String(),
		"assetId":     assetID.String(),
		"userId":      userID.String(),
		"licenseTier": "commercial",
	}

	meta, err := ParseCheckoutMetadata(valid)
	require.NoError(t, err)
	assert.Equal(t, CheckoutMetadata{OrderID: orderID, AssetID: assetID, UserID: userID, Tier: enums.LicenseTierCommercial}, meta)

	cases := map[string]map[string]string{
		"missing keys": {"orderId": orderID.String()},
		"bad uuid":     {"orderId": "nope", "assetId": assetID.String(), "userId": userID.String(), "licenseTier": "STANDARD"},
		"bad tier":     {"orderId": orderID.String(), "assetId": assetID.String(), "userId": userID.String(), "licenseTier": "GOLD"},
		"nil":          nil,
	}
	for name, md := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCheckoutMetadata(md)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}
