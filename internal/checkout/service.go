// Package checkout starts a purchase: it validates the request, snapshots
// the price into a pending order, and opens a hosted payment session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	"github.com/LLTIGER/pulse-architects-sub001/internal/pricing"
	pkgcheckout "github.com/LLTIGER/pulse-architects-sub001/pkg/checkout"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/metrics"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/stripe"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/visibility"
)

type assetReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type entitlementFinder interface {
	FindActive(ctx context.Context, userID, assetID uuid.UUID, tier enums.LicenseTier, now time.Time) (*models.License, error)
}

type sessionGateway interface {
	CreateCheckoutSession(ctx context.Context, in stripe.CheckoutSessionInput) (*stripe.CheckoutSession, error)
}

// Identity is the verified buyer behind a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

type Input struct {
	AssetID   uuid.UUID
	Tier      string
	ReturnURL string
}

type Result struct {
	IsFree     bool
	SessionID  string
	SessionURL string
	OrderID    uuid.UUID
	Amount     decimal.Decimal
}

type Service interface {
	Initiate(ctx context.Context, identity *Identity, input Input) (*Result, error)
}

type ServiceParams struct {
	Tx             db.TxRunner
	Assets         assetReader
	Licenses       entitlementFinder
	Orders         orders.Repository
	Gateway        sessionGateway
	Checkout       config.CheckoutConfig
	AllowedOrigins []string
	Metrics        *metrics.PipelineMetrics
	Logger         *logger.Logger
	Clock          func() time.Time
}

type service struct {
	tx       db.TxRunner
	assets   assetReader
	licenses entitlementFinder
	orders   orders.Repository
	gateway  sessionGateway
	cfg      config.CheckoutConfig
	origins  []string
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if p.Assets == nil {
		return nil, fmt.Errorf("asset reader required")
	}
	if p.Licenses == nil {
		return nil, fmt.Errorf("license finder required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Clock == nil {
		p.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:       p.Tx,
		assets:   p.Assets,
		licenses: p.Licenses,
		orders:   p.Orders,
		gateway:  p.Gateway,
		cfg:      p.Checkout,
		origins:  p.AllowedOrigins,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      p.Clock,
	}, nil
}

func (s *service) Initiate(ctx context.Context, identity *Identity, input Input) (*Result, error) {
	if identity == nil || identity.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	asset, err := s.assets.FindByID(ctx, input.AssetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load asset")
	}
	if err := visibility.EnsureAssetVisible(asset); err != nil {
		s.metrics.CheckoutOutcome(input.Tier, "asset_unavailable")
		return nil, err
	}

	tier, err := enums.ParseLicenseTier(input.Tier)
	if err != nil {
		s.metrics.CheckoutOutcome("unknown", "invalid_tier")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown license tier").
			WithDetails(map[string]any{"licenseTier": input.Tier})
	}
	entry, ok := pricing.Lookup(tier)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown license tier").
			WithDetails(map[string]any{"licenseTier": input.Tier})
	}

	if entry.IsFree() {
		s.metrics.CheckoutOutcome(tier.String(), "free")
		return &Result{IsFree: true, Amount: decimal.Zero}, nil
	}

	now := s.now()
	existing, err := s.licenses.FindActive(ctx, identity.UserID, asset.ID, tier, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing license")
	}
	if existing != nil {
		s.metrics.CheckoutOutcome(tier.String(), "duplicate")
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateEntitlement, "license already owned for this tier")
	}

	orderID := uuid.New()
	redirects, err := pkgcheckout.ResolveRedirects(pkgcheckout.RedirectInput{
		ReturnURL:      input.ReturnURL,
		DefaultSuccess: s.cfg.SuccessURL,
		DefaultCancel:  s.cfg.CancelURL,
		AllowedOrigins: s.origins,
		OrderID:        orderID.String(),
	})
	if err != nil {
		return nil, err
	}

	// amounts and currency both come from the price table
	order := buildOrder(orderID, identity, asset, entry)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	session, err := s.gateway.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		OrderID:       order.ID.String(),
		AssetID:       asset.ID.String(),
		UserID:        identity.UserID.String(),
		LicenseTier:   tier.String(),
		ProductName:   fmt.Sprintf("%s (%s license)", asset.Title, strings.ToLower(tier.String())),
		Description:   derefString(asset.Description),
		AmountMinor:   entry.AmountMinor(),
		Currency:      entry.Currency,
		CustomerEmail: identity.Email,
		SuccessURL:    redirects.SuccessURL,
		CancelURL:     redirects.CancelURL,
	})
	if err != nil {
		s.metrics.CheckoutOutcome(tier.String(), "gateway_failed")
		s.failOrder(ctx, order.ID, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}

	if err := s.orders.Update(ctx, order.ID, map[string]any{
		"stripe_session_id": session.ID,
		"payment_status":    enums.PaymentStatusProcessing,
	}); err != nil {
		// The webhook joins on order metadata, so the session still reconciles.
		s.logg.Error(ctx, "failed to record checkout session on order", err)
	}

	s.metrics.CheckoutOutcome(tier.String(), "session_created")
	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout session created")

	return &Result{
		SessionID:  session.ID,
		SessionURL: session.URL,
		OrderID:    order.ID,
		Amount:     entry.Price,
	}, nil
}

// failOrder records the gateway failure; the order is kept for audit.
func (s *service) failOrder(ctx context.Context, orderID uuid.UUID, cause error) {
	note := "gateway: " + cause.Error()
	if errors.Is(cause, stripe.ErrGatewayUnavailable) {
		note = "gateway: circuit open"
	}
	err := s.orders.Update(ctx, orderID, map[string]any{
		"status":             enums.OrderStatusCancelled,
		"payment_status":     enums.PaymentStatusFailed,
		"fulfillment_status": enums.FulfillmentStatusCancelled,
		"internal_notes":     note,
	})
	if err != nil {
		s.logg.Error(ctx, "failed to cancel order after gateway failure", err)
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "checkout cancelled after gateway failure")
}

func buildOrder(id uuid.UUID, identity *Identity, asset *models.Asset, entry pricing.Entry) *models.Order {
	order := &models.Order{
		ID:                id,
		UserID:            identity.UserID,
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		Subtotal:          entry.Price,
		Tax:               decimal.Zero,
		Total:             entry.Price,
		Currency:          entry.Currency,
		Items: []models.OrderItem{{
			AssetID:     asset.ID,
			LicenseTier: entry.Tier,
			Quantity:    1,
			UnitPrice:   entry.Price,
			TotalPrice:  entry.Price,
			Currency:    entry.Currency,
			Title:       asset.Title,
			Description: asset.Description,
		}},
	}
	if email := strings.TrimSpace(identity.Email); email != "" {
		order.BillingEmail = &email
	}
	if name := strings.TrimSpace(identity.Name); name != "" {
		order.BillingName = &name
	}
	return order
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
