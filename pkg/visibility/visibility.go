// Package visibility decides whether catalog assets may be referenced by
// buyer-facing flows.
package visibility

import (
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

// EnsureAssetVisible hides missing, inactive and unreviewed assets behind the same NOT_FOUND.
func EnsureAssetVisible(asset *models.Asset) error {
	if asset == nil || !asset.Available() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "asset unavailable")
	}
	return nil
}
