package licenses

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/dbtest"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	pkgpagination "github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), logger.Nop())
	require.NoError(t, err)
	return svc, conn
}

func issue(t *testing.T, svc *Service, conn *gorm.DB, in IssueInput) (*models.License, bool) {
	t.Helper()
	var (
		license *models.License
		created bool
	)
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		license, created, err = svc.Issue(context.Background(), tx, in)
		return err
	})
	require.NoError(t, err)
	return license, created
}

func standardInput(userID, assetID uuid.UUID) IssueInput {
	return IssueInput{
		OrderID:       uuid.New(),
		UserID:        userID,
		AssetID:       assetID,
		Tier:          enums.LicenseTierStandard,
		PurchasePrice: decimal.RequireFromString("29.99"),
		Currency:      "usd",
	}
}

func TestNewLicenseKeyFormat(t *testing.T) {
	orderID := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	assetID := uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")
	now := time.UnixMilli(1767225600123)

	key := NewLicenseKey(enums.LicenseTierCommercial, orderID, assetID, now)
	assert.Regexp(t, regexp.MustCompile(`^COM-0F8FAD5B-7C9E6679-MJUOHS3F-[0-9A-Z]{4}$`), key)

	prefixes := map[enums.LicenseTier]string{
		enums.LicenseTierPreview:  "PRV-",
		enums.LicenseTierStandard: "STD-",
		enums.LicenseTierExtended: "EXT-",
	}
	for tier, prefix := range prefixes {
		assert.Regexp(t, "^"+prefix, NewLicenseKey(tier, orderID, assetID, now))
	}
}

func TestIssueSetsCapabilities(t *testing.T) {
	svc, conn := newTestService(t)

	in := standardInput(uuid.New(), uuid.New())
	in.Tier = enums.LicenseTierCommercial
	in.PurchasePrice = decimal.RequireFromString("99.99")

	license, created := issue(t, svc, conn, in)
	require.True(t, created)
	assert.True(t, license.CommercialUse)
	assert.False(t, license.ResaleAllowed)
	assert.True(t, license.ModificationAllowed)
	assert.True(t, license.IsActive)
	assert.Nil(t, license.ExpiresAt)
}

func TestIssueIsIdempotentPerOrderAsset(t *testing.T) {
	svc, conn := newTestService(t)
	in := standardInput(uuid.New(), uuid.New())

	first, created := issue(t, svc, conn, in)
	require.True(t, created)
	second, created := issue(t, svc, conn, in)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.License{}).Where("order_id = ?", in.OrderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInsertIfAbsentSkipsConflict(t *testing.T) {
	_, conn := newTestService(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	orderID, assetID := uuid.New(), uuid.New()

	build := func() *models.License {
		return &models.License{
			LicenseKey:    NewLicenseKey(enums.LicenseTierStandard, orderID, assetID, time.Now()),
			Tier:          enums.LicenseTierStandard,
			UserID:        uuid.New(),
			OrderID:       orderID,
			AssetID:       assetID,
			PurchasePrice: decimal.RequireFromString("29.99"),
			Currency:      "usd",
			IsActive:      true,
		}
	}
	inserted, err := repo.InsertIfAbsent(ctx, build())
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = repo.InsertIfAbsent(ctx, build())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestIssuePreviewExpiresAfterSevenDays(t *testing.T) {
	svc, conn := newTestService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	in := standardInput(uuid.New(), uuid.New())
	in.Tier = enums.LicenseTierPreview
	in.PurchasePrice = decimal.Zero
	in.Now = now

	license, _ := issue(t, svc, conn, in)
	require.NotNil(t, license.ExpiresAt)
	assert.True(t, license.ExpiresAt.Equal(now.Add(7*24*time.Hour)))
	assert.Regexp(t, "^PRV-", license.LicenseKey)
}

func TestIssueRejectsUnknownTier(t *testing.T) {
	svc, conn := newTestService(t)
	in := standardInput(uuid.New(), uuid.New())
	in.Tier = enums.LicenseTier("PLATINUM")
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.Issue(context.Background(), tx, in)
		return err
	})
	assert.Error(t, err)
}

func TestFindActiveHonoursExpiryAndDeactivation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID, assetID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	in := standardInput(userID, assetID)
	license, _ := issue(t, svc, conn, in)

	found, err := svc.FindActive(ctx, userID, assetID, enums.LicenseTierStandard, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, license.ID, found.ID)

	other, err := svc.FindActive(ctx, userID, assetID, enums.LicenseTierCommercial, now)
	require.NoError(t, err)
	assert.Nil(t, other)

	var deactivated int64
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		deactivated, err = svc.DeactivateByOrder(ctx, tx, in.OrderID)
		return err
	}))
	assert.Equal(t, int64(1), deactivated)

	found, err = svc.FindActive(ctx, userID, assetID, enums.LicenseTierStandard, now)
	require.NoError(t, err)
	assert.Nil(t, found)

	preview := standardInput(userID, assetID)
	preview.Tier = enums.LicenseTierPreview
	preview.Now = now.Add(-8 * 24 * time.Hour)
	issue(t, svc, conn, preview)
	found, err = svc.FindActive(ctx, userID, assetID, enums.LicenseTierPreview, now)
	require.NoError(t, err)
	assert.Nil(t, found, "expired preview must not be returned")
}

func TestIncrementDownloadsStopsAtCap(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	limit := 2

	in := standardInput(uuid.New(), uuid.New())
	in.MaxDownloads = &limit
	license, _ := issue(t, svc, conn, in)

	for i := 0; i < limit; i++ {
		ok, err := svc.IncrementDownloads(ctx, license.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := svc.IncrementDownloads(ctx, license.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	var stored models.License
	require.NoError(t, conn.First(&stored, "id = ?", license.ID).Error)
	assert.Equal(t, limit, stored.DownloadCount)
	assert.False(t, stored.Usable(time.Now()))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		license, _ := issue(t, svc, conn, standardInput(userID, uuid.New()))
		require.NoError(t, conn.Model(&models.License{}).Where("id = ?", license.ID).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
		ids = append(ids, license.ID)
	}
	issue(t, svc, conn, standardInput(uuid.New(), uuid.New()))

	page, err := svc.List(ctx, ListParams{UserID: userID, Params: pkgpagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	require.NotEmpty(t, page.Cursor)

	rest, err := svc.List(ctx, ListParams{UserID: userID, Params: pkgpagination.Params{Limit: 2, Cursor: page.Cursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, ids[0], rest.Items[0].ID)
	assert.Empty(t, rest.Cursor)
	assert.True(t, rest.Items[0].Usable)
}

func TestListValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Params: pkgpagination.Params{Cursor: "!!"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
