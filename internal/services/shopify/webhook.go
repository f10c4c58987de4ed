package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	HeaderHmac   = "X-Shopify-Hmac-Sha256"
	HeaderTopic  = "X-Shopify-Topic"
	HeaderDomain = "X-Shopify-Shop-Domain"

	TopicProductsCreate = "products/create"
	TopicProductsUpdate = "products/update"
	TopicProductsDelete = "products/delete"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// SignWebhook computes the base64 HMAC-SHA256 of body the way Shopify signs
// webhook deliveries.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook checks the X-Shopify-Hmac-Sha256 header against the raw body.
func VerifyWebhook(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	expected := SignWebhook(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseProductWebhook decodes a products/create or products/update body.
func ParseProductWebhook(body []byte) (*Product, error) {
	var product Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return &product, nil
}

// ParseDeleteWebhook decodes a products/delete body, which only carries the id.
func ParseDeleteWebhook(body []byte) (int64, error) {
	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if payload.ID == 0 {
		return 0, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	return payload.ID, nil
}

func (p *Product) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidPayload)
	}
	for i, v := range p.Variants {
		if v.ID == 0 {
			return fmt.Errorf("%w: variant %d missing id", ErrInvalidPayload, i)
		}
	}
	return nil
}
