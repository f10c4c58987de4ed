package models

import (
	"fmt"
	"strconv"
)

const (
	DocumentTypeProduct        = "product"
	DocumentTypeProductVariant = "productVariant"
)

// ProductDocumentID derives the document store id for a commerce product.
func ProductDocumentID(shopifyID int64) string {
	return "product-" + strconv.FormatInt(shopifyID, 10)
}

// VariantDocumentID derives the document store id for a commerce variant.
func VariantDocumentID(shopifyID int64) string {
	return "productVariant-" + strconv.FormatInt(shopifyID, 10)
}

// ProductFields are the commerce-owned scalar fields of a product document.
// Prices are integer minor currency units.
type ProductFields struct {
	ShopifyID    int64           `json:"shopifyId"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	IsDraft      bool            `json:"isDraft"`
	Price        int64           `json:"price"`
	ComparePrice int64           `json:"comparePrice"`
	SKU          string          `json:"sku"`
	InStock      bool            `json:"inStock"`
	LowStock     bool            `json:"lowStock"`
	Options      []ProductOption `json:"options"`
}

type ProductOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// VariantFields are the commerce-owned scalar fields of a variant document.
type VariantFields struct {
	ShopifyID    int64           `json:"shopifyId"`
	ProductID    int64           `json:"productId"`
	Title        string          `json:"title"`
	Price        int64           `json:"price"`
	ComparePrice int64           `json:"comparePrice"`
	SKU          string          `json:"sku"`
	InStock      bool            `json:"inStock"`
	LowStock     bool            `json:"lowStock"`
	Options      []VariantOption `json:"options"`
}

type VariantOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document keys written by the catalog sync. The editable display title
// lives under "title"; the commerce title is kept separately.
const (
	FieldTitle        = "title"
	FieldShopifyTitle = "shopifyTitle"
	FieldOptions      = "options"
	FieldVariants     = "variants"
	FieldWasDeleted   = "wasDeleted"
	FieldProductID    = "productId"
)

// Fields renders the product fields as a document patch. References to the
// variant documents are attached in the given order.
func (p ProductFields) Fields(variantIDs []string) map[string]interface{} {
	options := make([]interface{}, 0, len(p.Options))
	for _, opt := range p.Options {
		values := make([]interface{}, 0, len(opt.Values))
		for _, v := range opt.Values {
			values = append(values, v)
		}
		options = append(options, map[string]interface{}{
			"_key":   opt.Name,
			"_type":  "option",
			"name":   opt.Name,
			"values": values,
		})
	}

	refs := make([]interface{}, 0, len(variantIDs))
	for _, id := range variantIDs {
		refs = append(refs, map[string]interface{}{
			"_key":  id,
			"_type": "reference",
			"_ref":  id,
			"_weak": true,
		})
	}

	return map[string]interface{}{
		"shopifyId":       p.ShopifyID,
		FieldShopifyTitle: p.Title,
		"slug":            p.Slug,
		"status":          p.Status,
		"isDraft":         p.IsDraft,
		"price":           p.Price,
		"comparePrice":    p.ComparePrice,
		"sku":             p.SKU,
		"inStock":         p.InStock,
		"lowStock":        p.LowStock,
		FieldOptions:      options,
		FieldVariants:     refs,
		FieldWasDeleted:   false,
	}
}

func (v VariantFields) Fields() map[string]interface{} {
	options := make([]interface{}, 0, len(v.Options))
	for i, opt := range v.Options {
		options = append(options, map[string]interface{}{
			"_key":  fmt.Sprintf("%s-%d", opt.Name, i),
			"name":  opt.Name,
			"value": opt.Value,
		})
	}

	return map[string]interface{}{
		"shopifyId":       v.ShopifyID,
		FieldProductID:    v.ProductID,
		FieldShopifyTitle: v.Title,
		"price":           v.Price,
		"comparePrice":    v.ComparePrice,
		"sku":             v.SKU,
		"inStock":         v.InStock,
		"lowStock":        v.LowStock,
		FieldOptions:      options,
		FieldWasDeleted:   false,
	}
}
