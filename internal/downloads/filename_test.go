package downloads

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

func TestAttachmentFilename(t *testing.T) {
	cases := []struct {
		name  string
		asset *models.Asset
		tier  enums.LicenseTier
		want  string
	}{
		{"title and ext", &models.Asset{Title: "Modern Loft, 2 Bed", StorageObject: "plans/loft.PDF"}, enums.LicenseTierCommercial, "modern-loft-2-bed-commercial.pdf"},
		{"no ext", &models.Asset{Title: "Barn", StorageObject: "plans/barn"}, enums.LicenseTierStandard, "barn-standard"},
		{"unsafe ext", &models.Asset{Title: "Barn", StorageObject: "plans/barn.p\"df"}, enums.LicenseTierStandard, "barn-standard"},
		{"non ascii title", &models.Asset{Title: "Café Ωmega", StorageObject: "x.zip"}, enums.LicenseTierExtended, "caf-mega-extended.zip"},
		{"empty title", &models.Asset{StorageObject: "x.dwg"}, enums.LicenseTierPreview, "asset-preview.dwg"},
		{"nil asset", nil, enums.LicenseTierPreview, "asset-preview"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AttachmentFilename(tc.asset, tc.tier))
		})
	}
}
