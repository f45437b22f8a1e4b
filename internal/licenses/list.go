package licenses

import (
	"time"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgpagination "github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

type ListParams struct {
	UserID uuid.UUID
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID                  uuid.UUID         `json:"id"`
	LicenseKey          string            `json:"licenseKey"`
	Tier                enums.LicenseTier `json:"tier"`
	AssetID             uuid.UUID         `json:"assetId"`
	OrderID             uuid.UUID         `json:"orderId"`
	CommercialUse       bool              `json:"commercialUse"`
	ResaleAllowed       bool              `json:"resaleAllowed"`
	ModificationAllowed bool              `json:"modificationAllowed"`
	IsActive            bool              `json:"isActive"`
	Usable              bool              `json:"usable"`
	DownloadCount       int               `json:"downloadCount"`
	MaxDownloads        *int              `json:"maxDownloads,omitempty"`
	ExpiresAt           *time.Time        `json:"expiresAt,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

func toListItem(m models.License, now time.Time) ListItem {
	return ListItem{
		ID:                  m.ID,
		LicenseKey:          m.LicenseKey,
		Tier:                m.Tier,
		AssetID:             m.AssetID,
		OrderID:             m.OrderID,
		CommercialUse:       m.CommercialUse,
		ResaleAllowed:       m.ResaleAllowed,
		ModificationAllowed: m.ModificationAllowed,
		IsActive:            m.IsActive,
		Usable:              m.Usable(now),
		DownloadCount:       m.DownloadCount,
		MaxDownloads:        m.MaxDownloads,
		ExpiresAt:           m.ExpiresAt,
		CreatedAt:           m.CreatedAt,
	}
}
