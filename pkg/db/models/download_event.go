package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// DownloadEvent is an append-only audit row for each download attempt.
type DownloadEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	AssetID   uuid.UUID         `gorm:"column:asset_id;type:uuid;not null"`
	UserID    *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	LicenseID *uuid.UUID        `gorm:"column:license_id;type:uuid"`
	Tier      enums.LicenseTier `gorm:"column:tier;not null"`
	Allowed   bool              `gorm:"column:allowed;not null"`
	Reason    string            `gorm:"column:reason;not null"`
	IPAddress string            `gorm:"column:ip_address;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (e *DownloadEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
