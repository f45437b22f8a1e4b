package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

func TestLookupTierTable(t *testing.T) {
	cases := []struct {
		tier  enums.LicenseTier
		price string
		minor int64
		free  bool
		caps  Capabilities
	}{
		{enums.LicenseTierPreview, "0", 0, true, Capabilities{}},
		{enums.LicenseTierStandard, "29.99", 2999, false, Capabilities{ModificationAllowed: true}},
		{enums.LicenseTierCommercial, "99.99", 9999, false, Capabilities{CommercialUse: true, ModificationAllowed: true}},
		{enums.LicenseTierExtended, "299.99", 29999, false, Capabilities{CommercialUse: true, ResaleAllowed: true, ModificationAllowed: true}},
	}
	for _, tc := range cases {
		t.Run(tc.tier.String(), func(t *testing.T) {
			entry, ok := Lookup(tc.tier)
			require.True(t, ok)
			assert.Equal(t, tc.price, entry.Price.String())
			assert.Equal(t, tc.minor, entry.AmountMinor())
			assert.Equal(t, tc.free, entry.IsFree())
			assert.Equal(t, tc.caps, entry.Capabilities)
			assert.Equal(t, tc.caps, CapabilitiesFor(tc.tier))
			assert.Equal(t, Currency, entry.Currency)
		})
	}
}

func TestLookupUnknownTier(t *testing.T) {
	_, ok := Lookup(enums.LicenseTier("PLATINUM"))
	assert.False(t, ok)
	assert.Equal(t, Capabilities{}, CapabilitiesFor(enums.LicenseTier("PLATINUM")))
}

func TestEveryTierIsPriced(t *testing.T) {
	for _, tier := range enums.LicenseTiers() {
		_, ok := Lookup(tier)
		assert.True(t, ok, "tier %s missing from catalog", tier)
	}
}
