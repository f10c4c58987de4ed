package models

// ProductSnapshot is the comparable projection of a synced product. Only its
// JSON form is persisted, as the commerce metafield value.
type ProductSnapshot struct {
	ID string `json:"id"`
	ProductFields
	Variants []VariantSnapshot `json:"variants"`
}

type VariantSnapshot struct {
	ID string `json:"id"`
	VariantFields
}
