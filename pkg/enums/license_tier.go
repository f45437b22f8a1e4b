package enums

import "strings"

// LicenseTier is the pricing and rights level of a purchase.
type LicenseTier string

const (
	LicenseTierPreview    LicenseTier = "PREVIEW"
	LicenseTierStandard   LicenseTier = "STANDARD"
	LicenseTierCommercial LicenseTier = "COMMERCIAL"
	LicenseTierExtended   LicenseTier = "EXTENDED"
)

// ascending price order
var licenseTiers = set[LicenseTier]{
	LicenseTierPreview,
	LicenseTierStandard,
	LicenseTierCommercial,
	LicenseTierExtended,
}

// LicenseTiers returns every tier in ascending price order.
func LicenseTiers() []LicenseTier {
	return append([]LicenseTier(nil), licenseTiers...)
}

func (t LicenseTier) String() string { return string(t) }

func (t LicenseTier) IsValid() bool { return licenseTiers.has(t) }

// ParseLicenseTier accepts tier names in any case.
func ParseLicenseTier(value string) (LicenseTier, error) {
	return licenseTiers.parse("license tier", strings.ToUpper(strings.TrimSpace(value)))
}
