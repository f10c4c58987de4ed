package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomnomnom/linkheader"

	"storesync/internal/logger"
)

const DefaultAPIVersion = "2023-10"

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
	retryBase   time.Duration
}

// NewClient builds an Admin API client. shopDomain may be a bare shop name,
// a myshopify.com host, or a full URL.
func NewClient(shopDomain, accessToken, apiVersion string, logger *logger.Logger) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Client{
		baseURL:     fmt.Sprintf("%s/admin/api/%s", shopBaseURL(shopDomain), apiVersion),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		retryBase: retryBaseDelay,
	}
}

func shopBaseURL(shopDomain string) string {
	domain := strings.TrimSuffix(strings.TrimSpace(shopDomain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	if !strings.Contains(domain, ".") {
		domain += ".myshopify.com"
	}
	return "https://" + domain
}

// ListProducts fetches one page of products. pageInfo is the cursor returned
// by the previous page, empty for the first.
func (c *Client) ListProducts(ctx context.Context, limit int, pageInfo string) (*ProductsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}

	var productsResp struct {
		Products []Product `json:"products"`
	}
	header, err := c.do(ctx, http.MethodGet, "/products.json", q, nil, &productsResp)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductsPage{
		Products:     productsResp.Products,
		NextPageInfo: nextPageInfo(header.Get("Link")),
	}, nil
}

// GetProduct fetches a single product by ID
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var productResp struct {
		Product Product `json:"product"`
	}
	path := fmt.Sprintf("/products/%d.json", productID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, nil, &productResp); err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return &productResp.Product, nil
}

// GetProductMetafield returns the product metafield with the given namespace
// and key, or nil when the product has none.
func (c *Client) GetProductMetafield(ctx context.Context, productID int64, namespace, key string) (*Metafield, error) {
	q := url.Values{}
	q.Set("namespace", namespace)
	q.Set("key", key)

	var metafieldsResp struct {
		Metafields []Metafield `json:"metafields"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if _, err := c.do(ctx, http.MethodGet, path, q, nil, &metafieldsResp); err != nil {
		return nil, fmt.Errorf("failed to get metafield %s.%s: %w", namespace, key, err)
	}

	for i := range metafieldsResp.Metafields {
		mf := metafieldsResp.Metafields[i]
		if mf.Namespace == namespace && mf.Key == key {
			return &mf, nil
		}
	}
	return nil, nil
}

func (c *Client) CreateProductMetafield(ctx context.Context, productID int64, metafield Metafield) (*Metafield, error) {
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield: metafield}

	var metafieldResp struct {
		Metafield Metafield `json:"metafield"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if _, err := c.do(ctx, http.MethodPost, path, nil, payload, &metafieldResp); err != nil {
		return nil, fmt.Errorf("failed to create metafield %s.%s: %w", metafield.Namespace, metafield.Key, err)
	}
	return &metafieldResp.Metafield, nil
}

func (c *Client) UpdateProductMetafield(ctx context.Context, productID int64, metafield Metafield) (*Metafield, error) {
	payload := struct {
		Metafield Metafield `json:"metafield"`
	}{Metafield: Metafield{ID: metafield.ID, Value: metafield.Value, Type: metafield.Type}}

	var metafieldResp struct {
		Metafield Metafield `json:"metafield"`
	}
	path := fmt.Sprintf("/products/%d/metafields/%d.json", productID, metafield.ID)
	if _, err := c.do(ctx, http.MethodPut, path, nil, payload, &metafieldResp); err != nil {
		return nil, fmt.Errorf("failed to update metafield %d: %w", metafield.ID, err)
	}
	return &metafieldResp.Metafield, nil
}

// do sends one Admin API request, retrying throttled and transient failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) (http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			delay := retryDelay(c.retryBase, attempt-1, lastErr)
			c.logger.Warn("Shopify %s %s failed, retrying in %s (attempt %d/%d): %v", method, path, delay, attempt, retryMax, lastErr)
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, err
			}
		}

		header, err := c.send(ctx, method, endpoint, payload, out)
		if err == nil {
			return header, nil
		}
		if !isRetryableHTTPError(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, out interface{}) (http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add authentication header
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(resp, respBody)
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// nextPageInfo extracts the page_info cursor of the rel="next" link.
func nextPageInfo(link string) string {
	if link == "" {
		return ""
	}
	for _, l := range linkheader.Parse(link).FilterByRel("next") {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		if pageInfo := u.Query().Get("page_info"); pageInfo != "" {
			return pageInfo
		}
	}
	return ""
}
