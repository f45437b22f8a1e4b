// Package pricing holds the static license tier table used by checkout and issuance.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// Currency is the only currency the storefront sells in.
const Currency = "usd"

// Capabilities are the usage rights a license tier grants.
type Capabilities struct {
	CommercialUse       bool `json:"commercialUse"`
	ResaleAllowed       bool `json:"resaleAllowed"`
	ModificationAllowed bool `json:"modificationAllowed"`
}

type Entry struct {
	Tier         enums.LicenseTier
	Price        decimal.Decimal
	Currency     string
	Capabilities Capabilities
}

// IsFree reports whether the tier bypasses the payment gateway.
func (e Entry) IsFree() bool {
	return e.Price.IsZero()
}

// AmountMinor converts the price to integer cents for the gateway.
func (e Entry) AmountMinor() int64 {
	return e.Price.Shift(2).Round(0).IntPart()
}

var catalog = map[enums.LicenseTier]Entry{
	enums.LicenseTierPreview: {
		Tier:     enums.LicenseTierPreview,
		Price:    decimal.Zero,
		Currency: Currency,
	},
	enums.LicenseTierStandard: {
		Tier:     enums.LicenseTierStandard,
		Price:    decimal.RequireFromString("29.99"),
		Currency: Currency,
		Capabilities: Capabilities{
			ModificationAllowed: true,
		},
	},
	enums.LicenseTierCommercial: {
		Tier:     enums.LicenseTierCommercial,
		Price:    decimal.RequireFromString("99.99"),
		Currency: Currency,
		Capabilities: Capabilities{
			CommercialUse:       true,
			ModificationAllowed: true,
		},
	},
	enums.LicenseTierExtended: {
		Tier:     enums.LicenseTierExtended,
		Price:    decimal.RequireFromString("299.99"),
		Currency: Currency,
		Capabilities: Capabilities{
			CommercialUse:       true,
			ResaleAllowed:       true,
			ModificationAllowed: true,
		},
	},
}

func Lookup(tier enums.LicenseTier) (Entry, bool) {
	entry, ok := catalog[tier]
	return entry, ok
}

// CapabilitiesFor returns the zero value for unknown tiers.
func CapabilitiesFor(tier enums.LicenseTier) Capabilities {
	return catalog[tier].Capabilities
}
