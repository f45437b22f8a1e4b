package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// Asset is a catalog entry (architectural plan or image). Its review
// lifecycle is owned elsewhere; the purchase pipeline only reads it.
type Asset struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Title         string            `gorm:"column:title;not null"`
	Description   *string           `gorm:"column:description"`
	MediaURL      string            `gorm:"column:media_url;not null"`
	StorageObject string            `gorm:"column:storage_object;not null"`
	IsActive      bool              `gorm:"column:is_active;not null"`
	Status        enums.AssetStatus `gorm:"column:status;not null"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Available reports whether checkout and download may reference the asset.
func (a *Asset) Available() bool {
	return a.IsActive && a.Status.IsPurchasable()
}
