package visibility

import (
	"testing"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

func TestEnsureAssetVisible(t *testing.T) {
	cases := []struct {
		name    string
		asset   *models.Asset
		visible bool
	}{
		{"missing", nil, false},
		{"published", &models.Asset{IsActive: true, Status: enums.AssetStatusPublished}, true},
		{"approved", &models.Asset{IsActive: true, Status: enums.AssetStatusApproved}, true},
		{"inactive", &models.Asset{IsActive: false, Status: enums.AssetStatusPublished}, false},
		{"pending review", &models.Asset{IsActive: true, Status: enums.AssetStatusPendingReview}, false},
		{"rejected", &models.Asset{IsActive: true, Status: enums.AssetStatusRejected}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := EnsureAssetVisible(tc.asset)
			if tc.visible {
				if err != nil {
					t.Fatalf("expected visible, got %v", err)
				}
				return
			}
			if errors.As(err) == nil || errors.As(err).Code() != errors.CodeNotFound {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}
