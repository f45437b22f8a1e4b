package licenses

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

const keyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var tierPrefixes = map[enums.LicenseTier]string{
	enums.LicenseTierPreview:    "PRV",
	enums.LicenseTierStandard:   "STD",
	enums.LicenseTierCommercial: "COM",
	enums.LicenseTierExtended:   "EXT",
}

// NewLicenseKey formats <prefix>-<order[0:8]>-<asset[0:8]>-<base36 millis>-<4 random>, uppercased.
func NewLicenseKey(tier enums.LicenseTier, orderID, assetID uuid.UUID, now time.Time) string {
	prefix, ok := tierPrefixes[tier]
	if !ok {
		prefix = "LIC"
	}
	parts := []string{
		prefix,
		orderID.String()[:8],
		assetID.String()[:8],
		strconv.FormatInt(now.UnixMilli(), 36),
		randomSuffix(4),
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(buf)
}
