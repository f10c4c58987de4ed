package shopify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Product represents a Shopify product, as returned by the REST API and sent
// in products/* webhooks.
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	BodyHTML    string     `json:"body_html"`
	Vendor      string     `json:"vendor"`
	ProductType string     `json:"product_type"`
	Handle      string     `json:"handle"`
	Status      string     `json:"status"`
	Tags        string     `json:"tags"`
	Variants    []Variant  `json:"variants"`
	Images      []Image    `json:"images"`
	Options     []Option   `json:"options"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// Variant represents a product variant
type Variant struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	Title             string    `json:"title"`
	Price             Money     `json:"price"`
	CompareAtPrice    Money     `json:"compare_at_price"`
	Sku               string    `json:"sku"`
	Position          int       `json:"position"`
	InventoryPolicy   string    `json:"inventory_policy"`
	InventoryQuantity int       `json:"inventory_quantity"`
	Option1           *string   `json:"option1"`
	Option2           *string   `json:"option2"`
	Option3           *string   `json:"option3"`
	Barcode           *string   `json:"barcode"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Image represents a product image
type Image struct {
	ID       int64   `json:"id"`
	Position int     `json:"position"`
	Alt      *string `json:"alt"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Src      string  `json:"src"`
}

// Option represents a product option
type Option struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

// Metafield is a namespaced key/value attachment on a product.
type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key,omitempty"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
}

// ProductsPage is one page of the product listing. NextPageInfo is empty on
// the last page.
type ProductsPage struct {
	Products     []Product
	NextPageInfo string
}

// Money is a decimal amount that Shopify sends as a string ("19.99"), or as
// null when unset.
type Money struct {
	Amount float64
	Valid  bool
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Money{}
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*m = Money{}
			return nil
		}
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", raw, err)
	}
	*m = Money{Amount: amount, Valid: true}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatFloat(m.Amount, 'f', 2, 64))
}

// MinorUnits returns the amount in integer cents, 0 when unset.
func (m Money) MinorUnits() int64 {
	if !m.Valid {
		return 0
	}
	return int64(math.Round(m.Amount * 100))
}
