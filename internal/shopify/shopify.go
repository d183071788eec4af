// Package shopify provides the storefront side of the fulfillment port:
// product metadata updates, collection membership and product URL lookup
// against the Shopify Admin API. Non-2xx responses are hard failures.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiVersion = "2024-07"

// ServiceError wraps a non-2xx response from the storefront service.
type ServiceError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("shopify %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client calls the Shopify Admin API for one store.
type Client struct {
	baseURL     string
	storeDomain string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a storefront client for the given store domain. An
// explicit baseURL overrides the derived admin endpoint (used in tests).
func NewClient(baseURL, storeDomain, accessToken string) *Client {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", storeDomain, apiVersion)
	}
	return &Client{
		baseURL:     baseURL,
		storeDomain: storeDomain,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shopify %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{Operation: method + " " + path, StatusCode: resp.StatusCode, Body: string(payload)}
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

// ProductMetadata is the listing copy written onto a storefront product.
type ProductMetadata struct {
	Title       string
	Description string
	Tags        []string
}

// UpdateProduct writes listing metadata onto the product.
func (c *Client) UpdateProduct(ctx context.Context, productID string, meta ProductMetadata) error {
	body := map[string]any{
		"product": map[string]any{
			"id":        productID,
			"title":     meta.Title,
			"body_html": meta.Description,
			"tags":      strings.Join(meta.Tags, ", "),
		},
	}
	return c.do(ctx, http.MethodPut, "/products/"+productID+".json", body, nil)
}

// AddToCollection places the product in a collection. Collection membership
// is optional for publishing; callers decide whether to treat failure as
// fatal.
func (c *Client) AddToCollection(ctx context.Context, productID, collectionID string) error {
	body := map[string]any{
		"collect": map[string]any{
			"product_id":    productID,
			"collection_id": collectionID,
		},
	}
	return c.do(ctx, http.MethodPost, "/collects.json", body, nil)
}

// GetProductURL returns the public storefront URL for a product.
func (c *Client) GetProductURL(ctx context.Context, productID string) (string, error) {
	var out struct {
		Product struct {
			Handle string `json:"handle"`
		} `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/"+productID+".json", nil, &out); err != nil {
		return "", err
	}
	if out.Product.Handle == "" {
		return "", &ServiceError{Operation: "product lookup", StatusCode: http.StatusOK, Body: "product has no handle"}
	}
	return fmt.Sprintf("https://%s/products/%s", c.storeDomain, out.Product.Handle), nil
}
