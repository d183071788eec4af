// Package imagen provides the image side of the generation port: a client
// for the external image-concept service, which renders a fixed-size batch
// of design variations for a prompt.
package imagen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/camila/ideaforge/internal/schemas"
	"github.com/camila/ideaforge/internal/types"
)

// ConceptCount is how many design variations are requested per call.
const ConceptCount = 4

// GenerationError wraps an image-port failure: a transport error, a non-2xx
// response, or a payload that fails schema validation.
type GenerationError struct {
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("image generation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("image generation error: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Client calls the image-concept service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an image-port client for the given service URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // image rendering is slow
		},
	}
}

type conceptRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type conceptResponse struct {
	Concepts []types.DesignConcept `json:"concepts"`
}

// GenerateConcepts renders ConceptCount design variations for the prompt.
// Every concept carries the generation seed so an operator can compare and
// later reproduce a variant.
func (c *Client) GenerateConcepts(ctx context.Context, prompt string) ([]types.DesignConcept, error) {
	body, err := json.Marshal(conceptRequest{Prompt: prompt, Count: ConceptCount})
	if err != nil {
		return nil, &GenerationError{Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/concepts", bytes.NewReader(body))
	if err != nil {
		return nil, &GenerationError{Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GenerationError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GenerationError{
			Message: fmt.Sprintf("service returned %d: %s", resp.StatusCode, truncate(payload, 200)),
		}
	}

	if err := schemas.Validate(schemas.DesignConcepts, payload); err != nil {
		return nil, &GenerationError{Message: "malformed concept payload", Cause: err}
	}

	var out conceptResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &GenerationError{Message: "failed to decode response", Cause: err}
	}
	if len(out.Concepts) != ConceptCount {
		return nil, &GenerationError{
			Message: fmt.Sprintf("expected %d concepts, got %d", ConceptCount, len(out.Concepts)),
		}
	}

	return out.Concepts, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
