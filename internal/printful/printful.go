// Package printful provides the print-on-demand side of the fulfillment
// port: design file upload, file-processing polling, and sync-product
// creation against the Printful API.
package printful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/camila/ideaforge/internal/poll"
	"github.com/camila/ideaforge/internal/types"
)

const defaultBaseURL = "https://api.printful.com"

// File-processing poll budget: exhaustion is a fatal timeout, never a
// silent success.
const (
	filePollInterval    = 2 * time.Second
	filePollMaxAttempts = 30
)

// Sync poll budget for the fulfillment-to-storefront bridge.
const (
	syncPollInterval    = 5 * time.Second
	syncPollMaxAttempts = 60
)

// ServiceError wraps a non-2xx response from the fulfillment service.
type ServiceError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("printful %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client calls the Printful API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a fulfillment client. An empty baseURL uses the public
// API endpoint.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FileUpload is the record returned when a design file is registered.
type FileUpload struct {
	FileID int64  `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// SyncProduct is the product created from an idea's selected variants.
type SyncProduct struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Synced     int    `json:"synced"`
}

// SyncProductParams describes the product to create.
type SyncProductParams struct {
	Name      string
	FileID    int64
	Thumbnail string
	Option    types.ProductOption
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("printful %s failed: %w", path, err)
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
		// Printful wraps every payload in a result envelope.
		var envelope struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return fmt.Errorf("failed to decode %s envelope: %w", path, err)
		}
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", path, err)
		}
	}
	return nil
}

// UploadFile registers a design file by URL for processing.
func (c *Client) UploadFile(ctx context.Context, fileURL string) (*FileUpload, error) {
	var out FileUpload
	err := c.do(ctx, http.MethodPost, "/files", map[string]string{"url": fileURL}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFile returns the current processing state of an uploaded file.
func (c *Client) GetFile(ctx context.Context, fileID int64) (*FileUpload, error) {
	var out FileUpload
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/files/%d", fileID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForFile polls file processing to completion within the fixed budget.
// Exhaustion returns a *poll.TimeoutError.
func (c *Client) WaitForFile(ctx context.Context, fileID int64) error {
	budget := poll.Budget{
		Operation:   "printful file processing",
		Interval:    filePollInterval,
		MaxAttempts: filePollMaxAttempts,
	}
	return poll.Until(ctx, budget, func(ctx context.Context) (bool, error) {
		f, err := c.GetFile(ctx, fileID)
		if err != nil {
			return false, err
		}
		switch f.Status {
		case "ok":
			return true, nil
		case "failed":
			return false, &ServiceError{Operation: "file processing", StatusCode: http.StatusOK, Body: "file entered failed state"}
		default:
			return false, nil
		}
	})
}

// CreateSyncProduct creates a storefront-synced product from the selected
// variant option and its placements.
func (c *Client) CreateSyncProduct(ctx context.Context, params SyncProductParams) (*SyncProduct, error) {
	type placement struct {
		Area     string  `json:"placement"`
		WidthIn  float64 `json:"width_in"`
		OffsetIn float64 `json:"offset_in"`
		FileID   int64   `json:"file_id"`
	}
	type variant struct {
		Color string      `json:"color"`
		Size  string      `json:"size"`
		Files []placement `json:"files"`
	}

	var variants []variant
	for _, color := range params.Option.Colors {
		for _, size := range params.Option.Sizes {
			v := variant{Color: color, Size: size}
			for _, p := range params.Option.Placements {
				v.Files = append(v.Files, placement{
					Area:     p.Area,
					WidthIn:  p.WidthIn,
					OffsetIn: p.OffsetIn,
					FileID:   params.FileID,
				})
			}
			variants = append(variants, v)
		}
	}

	body := map[string]any{
		"sync_product": map[string]any{
			"name":      params.Name,
			"thumbnail": params.Thumbnail,
		},
		"sync_variants": variants,
	}

	var out SyncProduct
	if err := c.do(ctx, http.MethodPost, "/store/products", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSyncProduct returns the sync state of a created product. ExternalID is
// the storefront product id once the bridge has synced.
func (c *Client) GetSyncProduct(ctx context.Context, productID int64) (*SyncProduct, error) {
	var out struct {
		SyncProduct SyncProduct `json:"sync_product"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/store/products/%d", productID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out.SyncProduct, nil
}

// WaitForSync polls the fulfillment-to-storefront bridge until the product
// has a storefront external id. Exhaustion returns a *poll.TimeoutError.
func (c *Client) WaitForSync(ctx context.Context, productID int64) (string, error) {
	var externalID string
	budget := poll.Budget{
		Operation:   "printful storefront sync",
		Interval:    syncPollInterval,
		MaxAttempts: syncPollMaxAttempts,
	}
	err := poll.Until(ctx, budget, func(ctx context.Context) (bool, error) {
		p, err := c.GetSyncProduct(ctx, productID)
		if err != nil {
			return false, err
		}
		if p.Synced > 0 && p.ExternalID != "" {
			externalID = p.ExternalID
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return "", err
	}
	return externalID, nil
}
