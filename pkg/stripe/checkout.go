package stripe

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v84"
)

// Metadata keys attached to every checkout session and its payment intent.
// The webhook reconciler joins events back to orders through them.
const (
	MetadataOrderID     = "orderId"
	MetadataAssetID     = "assetId"
	MetadataLicenseTier = "licenseTier"
	MetadataUserID      = "userId"
)

// CheckoutSessionInput describes a single-item hosted checkout.
type CheckoutSessionInput struct {
	OrderID       string
	AssetID       string
	UserID        string
	LicenseTier   string
	ProductName   string
	Description   string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the redirect handle returned to the browser.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a hosted payment session for one order.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (*CheckoutSession, error) {
	if c == nil || c.createSession == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if in.AmountMinor <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", in.AmountMinor)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := buildSessionParams(in)
	// a retried checkout for the same order gets the session stripe already made
	params.SetIdempotencyKey("checkout-session:" + in.OrderID)

	sess, err := c.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return c.createSession(callCtx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if sess == nil || sess.ID == "" {
		return nil, errors.New("create checkout session: empty session")
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func buildSessionParams(in CheckoutSessionInput) *stripe.CheckoutSessionCreateParams {
	metadata := map[string]string{
		MetadataOrderID:     in.OrderID,
		MetadataAssetID:     in.AssetID,
		MetadataLicenseTier: in.LicenseTier,
		MetadataUserID:      in.UserID,
	}

	product := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(in.ProductName),
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		product.Description = stripe.String(desc)
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.OrderID),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripe.String(strings.ToLower(in.Currency)),
					UnitAmount:  stripe.Int64(in.AmountMinor),
					ProductData: product,
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: copyMetadata(metadata),
		},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.Metadata = copyMetadata(metadata)
	return params
}

func copyMetadata(in map[string]string) map[string]string {
	return maps.Clone(in)
}
