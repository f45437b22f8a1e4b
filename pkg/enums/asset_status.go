package enums

// AssetStatus is the review/publish state of a catalog asset.
type AssetStatus string

const (
	AssetStatusDraft         AssetStatus = "DRAFT"
	AssetStatusPendingReview AssetStatus = "PENDING_REVIEW"
	AssetStatusApproved      AssetStatus = "APPROVED"
	AssetStatusPublished     AssetStatus = "PUBLISHED"
	AssetStatusRejected      AssetStatus = "REJECTED"
)

func (s AssetStatus) String() string {
	return string(s)
}

// IsPurchasable reports whether the asset is visible to the checkout and download paths.
func (s AssetStatus) IsPurchasable() bool {
	return s == AssetStatusApproved || s == AssetStatusPublished
}
