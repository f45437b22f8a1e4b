package downloads

import (
	"path"
	"strings"
	"unicode"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

const maxSlugLength = 80

// AttachmentFilename renders "<slug>-<tier>.<ext>" for the Content-Disposition header.
func AttachmentFilename(asset *models.Asset, tier enums.LicenseTier) string {
	slug := ""
	if asset != nil {
		slug = Slugify(asset.Title)
	}
	if slug == "" {
		slug = "asset"
	}
	name := slug + "-" + strings.ToLower(tier.String())
	if asset != nil {
		if ext := strings.ToLower(path.Ext(asset.StorageObject)); isSafeExt(ext) {
			name += ext
		}
	}
	return name
}

// Slugify lowercases title and keeps ASCII letters and digits, joining runs
// of anything else with a single dash.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > maxSlugLength {
		out = strings.Trim(out[:maxSlugLength], "-")
	}
	return out
}

func isSafeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
