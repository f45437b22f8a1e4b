package stripewebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	pkgstripe "github.com/LLTIGER/pulse-architects-sub001/pkg/stripe"
)

// Event is the decoded subset of gateway events the reconciler acts on.
type Event interface {
	eventType() string
}

type CheckoutCompleted struct {
	SessionID       string
	PaymentIntentID string
	Metadata        map[string]string
}

type PaymentSucceeded struct {
	PaymentIntentID string
	OrderID         uuid.UUID
}

type PaymentFailed struct {
	PaymentIntentID string
	OrderID         uuid.UUID
	Message         string
}

type DisputeCreated struct {
	PaymentIntentID string
	Reason          string
}

// Ignored covers every event type without a transition.
type Ignored struct {
	Type string
}

func (CheckoutCompleted) eventType() string {
	return string(stripe.EventTypeCheckoutSessionCompleted)
}
func (PaymentSucceeded) eventType() string { return string(stripe.EventTypePaymentIntentSucceeded) }
func (PaymentFailed) eventType() string    { return string(stripe.EventTypePaymentIntentPaymentFailed) }
func (DisputeCreated) eventType() string   { return string(stripe.EventTypeChargeDisputeCreated) }
func (e Ignored) eventType() string        { return e.Type }

// DecodeEvent maps a verified gateway event onto the reconciler's event set.
func DecodeEvent(event *stripe.Event) (Event, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		out := CheckoutCompleted{SessionID: session.ID, Metadata: session.Metadata}
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}
		return out, nil

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return PaymentSucceeded{PaymentIntentID: intent.ID, OrderID: orderIDFrom(intent.Metadata)}, nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		out := PaymentFailed{PaymentIntentID: intent.ID, OrderID: orderIDFrom(intent.Metadata)}
		if intent.LastPaymentError != nil {
			out.Message = intent.LastPaymentError.Msg
		}
		return out, nil

	case stripe.EventTypeChargeDisputeCreated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode dispute")
		}
		out := DisputeCreated{Reason: string(dispute.Reason)}
		if dispute.PaymentIntent != nil {
			out.PaymentIntentID = dispute.PaymentIntent.ID
		}
		return out, nil

	default:
		return Ignored{Type: string(event.Type)}, nil
	}
}

// CheckoutMetadata is the order reference attached at session creation.
type CheckoutMetadata struct {
	OrderID uuid.UUID
	AssetID uuid.UUID
	UserID  uuid.UUID
	Tier    enums.LicenseTier
}

// ParseCheckoutMetadata requires every key and rejects malformed ids or tiers.
func ParseCheckoutMetadata(md map[string]string) (CheckoutMetadata, error) {
	var out CheckoutMetadata
	var missing []string
	ids := map[string]*uuid.UUID{
		pkgstripe.MetadataOrderID: &out.OrderID,
		pkgstripe.MetadataAssetID: &out.AssetID,
		pkgstripe.MetadataUserID:  &out.UserID,
	}
	for _, key := range []string{pkgstripe.MetadataOrderID, pkgstripe.MetadataAssetID, pkgstripe.MetadataUserID} {
		raw := strings.TrimSpace(md[key])
		if raw == "" {
			missing = append(missing, key)
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return CheckoutMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("metadata %s is not a uuid", key))
		}
		*ids[key] = id
	}
	rawTier := strings.TrimSpace(md[pkgstripe.MetadataLicenseTier])
	if rawTier == "" {
		missing = append(missing, pkgstripe.MetadataLicenseTier)
	}
	if len(missing) > 0 {
		return CheckoutMetadata{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout metadata incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	tier, err := enums.ParseLicenseTier(rawTier)
	if err != nil {
		return CheckoutMetadata{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata licenseTier invalid")
	}
	out.Tier = tier
	return out, nil
}

func orderIDFrom(md map[string]string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(md[pkgstripe.MetadataOrderID]))
	if err != nil {
		return uuid.Nil
	}
	return id
}
