package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// License is the durable entitlement issued for a fulfilled order.
// Capability flags are fixed at issuance.
type License struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	LicenseKey          string            `gorm:"column:license_key;not null;unique"`
	Tier                enums.LicenseTier `gorm:"column:tier;not null"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	OrderID             uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	AssetID             uuid.UUID         `gorm:"column:asset_id;type:uuid;not null"`
	CommercialUse       bool              `gorm:"column:commercial_use;not null"`
	ResaleAllowed       bool              `gorm:"column:resale_allowed;not null"`
	ModificationAllowed bool              `gorm:"column:modification_allowed;not null"`
	PurchasePrice       decimal.Decimal   `gorm:"column:purchase_price;type:numeric(12,2);not null"`
	Currency            string            `gorm:"column:currency;not null"`
	DownloadCount       int               `gorm:"column:download_count;not null;default:0"`
	MaxDownloads        *int              `gorm:"column:max_downloads"`
	IsActive            bool              `gorm:"column:is_active;not null"`
	ExpiresAt           *time.Time        `gorm:"column:expires_at"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *License) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Usable reports whether the license grants downloads at the given instant.
func (l *License) Usable(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return false
	}
	if l.MaxDownloads != nil && l.DownloadCount >= *l.MaxDownloads {
		return false
	}
	return true
}
