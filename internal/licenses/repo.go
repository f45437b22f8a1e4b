package licenses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LLTIGER/pulse-architects-sub001/internal/repo"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgpagination "github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

// Repository exposes license persistence operations.
type Repository struct {
	licenses repo.Table[models.License]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{licenses: repo.NewTable[models.License](db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{licenses: r.licenses.WithTx(tx)}
}

// InsertIfAbsent inserts the license unless one already exists for its
// (order, asset) pair. It reports whether a row was written.
func (r *Repository) InsertIfAbsent(ctx context.Context, license *models.License) (bool, error) {
	res := r.licenses.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "asset_id"}},
			DoNothing: true,
		}).
		Create(license)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) FindByOrderAndAsset(ctx context.Context, orderID, assetID uuid.UUID) (*models.License, error) {
	return repo.First[models.License](r.licenses.DB(ctx).Where("order_id = ? AND asset_id = ?", orderID, assetID))
}

// FindActive returns the newest active, unexpired license the user holds for the asset tier.
func (r *Repository) FindActive(ctx context.Context, userID, assetID uuid.UUID, tier enums.LicenseTier, now time.Time) (*models.License, error) {
	return repo.First[models.License](r.licenses.DB(ctx).
		Where("user_id = ? AND asset_id = ? AND tier = ? AND is_active = ?", userID, assetID, tier, true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Order("created_at DESC"))
}

// ListByUser pages through a user's licenses, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pkgpagination.Cursor) ([]models.License, error) {
	var rows []models.License
	err := r.licenses.DB(ctx).
		Where("user_id = ?", userID).
		Scopes(pkgpagination.After(cursor)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeactivateByOrder flips every active license of the order to inactive.
func (r *Repository) DeactivateByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	res := r.licenses.Model(ctx).
		Where("order_id = ? AND is_active = ?", orderID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// IncrementDownloads bumps the counter only while the license is active and under its cap.
func (r *Repository) IncrementDownloads(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.licenses.Model(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Where("(max_downloads IS NULL OR download_count < max_downloads)").
		Update("download_count", gorm.Expr("download_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
