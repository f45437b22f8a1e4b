// Package assets is the read side of the catalog used by checkout and downloads.
package assets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/repo"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
)

type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type Repository struct {
	table repo.Table[models.Asset]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{table: repo.NewTable[models.Asset](db)}
}

// FindByID returns nil without error when the asset does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	return repo.First[models.Asset](r.table.DB(ctx).Where("id = ?", id))
}

// FindAvailable returns the asset only when it is active and approved or published.
func (r *Repository) FindAvailable(ctx context.Context, id uuid.UUID) (*models.Asset, error) {
	asset, err := r.FindByID(ctx, id)
	if err != nil || asset == nil {
		return nil, err
	}
	if !asset.Available() {
		return nil, nil
	}
	return asset, nil
}
