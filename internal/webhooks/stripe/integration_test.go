//go:build integration

package stripewebhook

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/licenses"
	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/migrate"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox"
)

func startPostgres(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := db.New(ctx, config.DBConfig{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Minute}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.SQL()
	require.NoError(t, err)
	_, err = migrate.RunEmbedded(ctx, sqlDB, "up")
	require.NoError(t, err)
	return client
}

func seedOrder(t *testing.T, conn *gorm.DB, repo orders.Repository) *models.Order {
	t.Helper()
	ctx := context.Background()

	asset := &models.Asset{
		ID:            uuid.New(),
		Title:         "Harbour Lofts",
		MediaURL:      "https://cdn.example.com/harbour.jpg",
		StorageObject: "assets/harbour/full.jpg",
		IsActive:      true,
		Status:        enums.AssetStatusPublished,
	}
	require.NoError(t, conn.WithContext(ctx).Create(asset).Error)

	amount := decimal.RequireFromString("49.00")
	email := "buyer@example.com"
	order := &models.Order{
		UserID:            uuid.New(),
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.PaymentStatusProcessing,
		FulfillmentStatus: enums.FulfillmentStatusPending,
		Subtotal:          amount,
		Tax:               decimal.Zero,
		Total:             amount,
		Currency:          "usd",
		BillingEmail:      &email,
		Items: []models.OrderItem{{
			AssetID:     asset.ID,
			LicenseTier: enums.LicenseTierStandard,
			Quantity:    1,
			UnitPrice:   amount,
			TotalPrice:  amount,
			Currency:    "usd",
			Title:       asset.Title,
		}},
	}
	require.NoError(t, repo.Create(ctx, order))
	return order
}

func TestConcurrentCheckoutCompletionIssuesOneLicense(t *testing.T) {
	client := startPostgres(t)
	conn := client.DB()

	licenseSvc, err := licenses.NewService(licenses.NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	orderRepo := orders.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		TransactionRunner: client,
		Orders:            orderRepo,
		Licenses:          licenseSvc,
		Events:            NewProcessedEvents(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
	})
	require.NoError(t, err)

	order := seedOrder(t, conn, orderRepo)

	// distinct event ids race on the order row lock, repeated ids race on the
	// processed-events key
	const deliveries = 8
	events := make([]*stripe.Event, deliveries)
	for i := range events {
		events[i] = checkoutCompleted(t, fmt.Sprintf("evt_race_%d", i%3), order, "pi_race")
	}
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i, evt := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.HandleEvent(context.Background(), evt)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "delivery %d", i)
	}

	var licenseCount int64
	require.NoError(t, conn.Model(&models.License{}).Where("order_id = ?", order.ID).Count(&licenseCount).Error)
	require.EqualValues(t, 1, licenseCount)

	var eventCount int64
	require.NoError(t, conn.Model(&models.WebhookEvent{}).Count(&eventCount).Error)
	require.EqualValues(t, 3, eventCount)

	reloaded, err := orderRepo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, reloaded.Status)
	require.Equal(t, enums.PaymentStatusPaid, reloaded.PaymentStatus)
}
