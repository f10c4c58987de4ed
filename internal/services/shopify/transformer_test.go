package shopify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storesync/internal/models"
)

const multiVariantPayload = `{
  "id": 1001,
  "title": "Trail Shoe",
  "handle": "trail-shoe",
  "status": "active",
  "options": [
    {"id": 1, "name": "Size", "position": 1, "values": ["9", "10"]},
    {"id": 2, "name": "Color", "position": 2, "values": ["Red"]}
  ],
  "variants": [
    {"id": 30, "product_id": 1001, "title": "10 / Red", "price": "20.01", "compare_at_price": null,
     "sku": "TS-10", "inventory_quantity": 6, "inventory_policy": "deny", "option1": "10", "option2": "Red"},
    {"id": 20, "product_id": 1001, "title": "9 / Red", "price": "19.99", "compare_at_price": "24.50",
     "sku": "TS-9", "inventory_quantity": 3, "inventory_policy": "deny", "option1": "9", "option2": "Red"}
  ]
}`

func parseProduct(t *testing.T, payload string) *Product {
	t.Helper()
	var p Product
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	return &p
}

func TestTransformProduct(t *testing.T) {
	product := NewTransformer().TransformProduct(parseProduct(t, multiVariantPayload))

	assert.Equal(t, "product-1001", product.DocumentID)
	assert.Equal(t, []string{"productVariant-20", "productVariant-30"}, product.VariantIDs())

	f := product.Fields
	assert.Equal(t, "Trail Shoe", f.Title)
	assert.Equal(t, "trail-shoe", f.Slug)
	assert.False(t, f.IsDraft)
	assert.Equal(t, int64(1999), f.Price)
	assert.Equal(t, int64(2450), f.ComparePrice)
	assert.Equal(t, "TS-9", f.SKU)
	assert.True(t, f.InStock)
	assert.True(t, f.LowStock, "9 units in total is low stock")
	assert.Equal(t, []models.ProductOption{
		{Name: "Size", Values: []string{"9", "10"}},
		{Name: "Color", Values: []string{"Red"}},
	}, f.Options)

	first := product.Variants[0].Fields
	assert.Equal(t, int64(20), first.ShopifyID)
	assert.Equal(t, int64(1001), first.ProductID)
	assert.True(t, first.LowStock)
	assert.Equal(t, []models.VariantOption{{Name: "Size", Value: "9"}, {Name: "Color", Value: "Red"}}, first.Options)

	second := product.Variants[1].Fields
	assert.Equal(t, int64(2001), second.Price)
	assert.Equal(t, int64(0), second.ComparePrice)
	assert.False(t, second.LowStock, "6 units is above the variant threshold")
}

func TestTransformProductThresholds(t *testing.T) {
	tests := []struct {
		name       string
		quantities []int
		wantLow    bool
	}{
		{"exactly ten", []int{5, 5}, true},
		{"eleven", []int{6, 5}, false},
		{"none", []int{0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{ID: 1, Title: "x"}
			for i, q := range tt.quantities {
				p.Variants = append(p.Variants, Variant{ID: int64(i + 1), InventoryQuantity: q})
			}
			got := NewTransformer().TransformProduct(p)
			assert.Equal(t, tt.wantLow, got.Fields.LowStock)
		})
	}
}

func TestTransformProductSingleVariantHasNoOptions(t *testing.T) {
	p := &Product{
		ID:      7,
		Title:   "Poster",
		Status:  "draft",
		Options: []Option{{Name: "Title", Position: 1, Values: []string{"Default Title"}}},
		Variants: []Variant{{
			ID:                70,
			Price:             Money{Amount: 5, Valid: true},
			InventoryQuantity: 0,
			InventoryPolicy:   InventoryPolicyContinue,
			Option1:           strPtr("Default Title"),
		}},
	}

	got := NewTransformer().TransformProduct(p)
	assert.True(t, got.Fields.IsDraft)
	assert.Empty(t, got.Fields.Options)
	assert.Empty(t, got.Variants[0].Fields.Options)
	assert.True(t, got.Fields.InStock, "continue policy sells past zero")
	assert.True(t, got.Variants[0].Fields.InStock)
	assert.Equal(t, int64(500), got.Fields.Price)
}

func TestTransformProductWithoutVariants(t *testing.T) {
	got := NewTransformer().TransformProduct(&Product{ID: 9, Title: "Empty"})

	assert.Equal(t, int64(0), got.Fields.Price)
	assert.Equal(t, "", got.Fields.SKU)
	assert.False(t, got.Fields.InStock)
	assert.Empty(t, got.Variants)
}

func TestTransformProductDoesNotReorderInput(t *testing.T) {
	p := parseProduct(t, multiVariantPayload)
	NewTransformer().TransformProduct(p)
	assert.Equal(t, int64(30), p.Variants[0].ID)
}

func TestSnapshot(t *testing.T) {
	product := NewTransformer().TransformProduct(parseProduct(t, multiVariantPayload))
	snap := product.Snapshot()

	assert.Equal(t, "product-1001", snap.ID)
	require.Len(t, snap.Variants, 2)
	assert.Equal(t, "productVariant-20", snap.Variants[0].ID)
	assert.Equal(t, product.Fields.Price, snap.Price)
}

func TestMoney(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
		D Money `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"0.125","b":null,"c":7,"d":""}`), &v))

	assert.Equal(t, int64(13), v.A.MinorUnits())
	assert.False(t, v.B.Valid)
	assert.Equal(t, int64(0), v.B.MinorUnits())
	assert.Equal(t, int64(700), v.C.MinorUnits())
	assert.False(t, v.D.Valid)

	var bad Money
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &bad))
}

func strPtr(s string) *string { return &s }
