package assets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/dbtest"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

func TestFindAvailable(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seed := func(active bool, status enums.AssetStatus) uuid.UUID {
		asset := models.Asset{
			ID:            uuid.New(),
			Title:         "Courtyard House",
			MediaURL:      "https://cdn.example.com/courtyard.jpg",
			StorageObject: "plans/courtyard.pdf",
			IsActive:      active,
			Status:        status,
		}
		require.NoError(t, conn.Create(&asset).Error)
		return asset.ID
	}

	published := seed(true, enums.AssetStatusPublished)
	approved := seed(true, enums.AssetStatusApproved)
	draft := seed(true, enums.AssetStatusDraft)
	inactive := seed(false, enums.AssetStatusPublished)

	for _, id := range []uuid.UUID{published, approved} {
		asset, err := repo.FindAvailable(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.Equal(t, id, asset.ID)
	}
	for _, id := range []uuid.UUID{draft, inactive, uuid.New()} {
		asset, err := repo.FindAvailable(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, asset)
	}

	asset, err := repo.FindByID(ctx, draft)
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, enums.AssetStatusDraft, asset.Status)
}
