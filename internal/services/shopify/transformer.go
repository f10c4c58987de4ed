package shopify

import (
	"sort"

	"storesync/internal/models"
)

const (
	// ProductLowStockThreshold applies to the summed quantity of all variants.
	ProductLowStockThreshold = 10
	// VariantLowStockThreshold applies to a single variant's quantity.
	VariantLowStockThreshold = 5

	InventoryPolicyContinue = "continue"
	StatusDraft             = "draft"
)

// CatalogProduct is a commerce product mapped onto document store fields.
type CatalogProduct struct {
	DocumentID string
	Fields     models.ProductFields
	Variants   []CatalogVariant
}

type CatalogVariant struct {
	DocumentID string
	Fields     models.VariantFields
}

// VariantIDs returns the variant document ids in ascending commerce id order.
func (p *CatalogProduct) VariantIDs() []string {
	ids := make([]string, len(p.Variants))
	for i, v := range p.Variants {
		ids[i] = v.DocumentID
	}
	return ids
}

// Snapshot is the comparable projection persisted in the commerce metafield.
func (p *CatalogProduct) Snapshot() models.ProductSnapshot {
	snap := models.ProductSnapshot{
		ID:            p.DocumentID,
		ProductFields: p.Fields,
		Variants:      make([]models.VariantSnapshot, len(p.Variants)),
	}
	for i, v := range p.Variants {
		snap.Variants[i] = models.VariantSnapshot{ID: v.DocumentID, VariantFields: v.Fields}
	}
	return snap
}

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// TransformProduct converts a Shopify product into product and variant
// document fields. The input is not modified.
func (t *Transformer) TransformProduct(shopifyProduct *Product) *CatalogProduct {
	variants := make([]Variant, len(shopifyProduct.Variants))
	copy(variants, shopifyProduct.Variants)
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].ID < variants[j].ID
	})

	options := make([]Option, len(shopifyProduct.Options))
	copy(options, shopifyProduct.Options)
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Position < options[j].Position
	})
	withOptions := len(variants) > 1

	fields := models.ProductFields{
		ShopifyID: shopifyProduct.ID,
		Title:     shopifyProduct.Title,
		Slug:      shopifyProduct.Handle,
		Status:    shopifyProduct.Status,
		IsDraft:   shopifyProduct.Status == StatusDraft,
		Options:   []models.ProductOption{},
	}

	// The lowest variant id carries the default price and sku; a product
	// without variants keeps zero values.
	if len(variants) > 0 {
		fields.Price = variants[0].Price.MinorUnits()
		fields.ComparePrice = variants[0].CompareAtPrice.MinorUnits()
		fields.SKU = variants[0].Sku
	}

	totalQuantity := 0
	for _, v := range variants {
		totalQuantity += v.InventoryQuantity
		if variantInStock(v) {
			fields.InStock = true
		}
	}
	fields.LowStock = totalQuantity <= ProductLowStockThreshold

	if withOptions {
		for _, opt := range options {
			values := make([]string, len(opt.Values))
			copy(values, opt.Values)
			fields.Options = append(fields.Options, models.ProductOption{Name: opt.Name, Values: values})
		}
	}

	product := &CatalogProduct{
		DocumentID: models.ProductDocumentID(shopifyProduct.ID),
		Fields:     fields,
		Variants:   make([]CatalogVariant, 0, len(variants)),
	}

	for _, v := range variants {
		vf := models.VariantFields{
			ShopifyID:    v.ID,
			ProductID:    shopifyProduct.ID,
			Title:        v.Title,
			Price:        v.Price.MinorUnits(),
			ComparePrice: v.CompareAtPrice.MinorUnits(),
			SKU:          v.Sku,
			InStock:      variantInStock(v),
			LowStock:     v.InventoryQuantity <= VariantLowStockThreshold,
			Options:      []models.VariantOption{},
		}
		if withOptions {
			vf.Options = variantOptions(v, options)
		}
		product.Variants = append(product.Variants, CatalogVariant{
			DocumentID: models.VariantDocumentID(v.ID),
			Fields:     vf,
		})
	}

	return product
}

func variantInStock(v Variant) bool {
	return v.InventoryQuantity > 0 || v.InventoryPolicy == InventoryPolicyContinue
}

// variantOptions pairs option1..option3 with the product's option names by
// position.
func variantOptions(v Variant, options []Option) []models.VariantOption {
	values := []*string{v.Option1, v.Option2, v.Option3}
	out := []models.VariantOption{}
	for i, value := range values {
		if value == nil || i >= len(options) {
			continue
		}
		out = append(out, models.VariantOption{Name: options[i].Name, Value: *value})
	}
	return out
}
