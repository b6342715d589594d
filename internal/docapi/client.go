// Package docapi provides a client for the external document-understanding
// API that converts images into structured content elements.
package docapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/docubot-ai/docubot/internal/domain"
	"github.com/docubot-ai/docubot/internal/partition"
)

const partitionPath = "/general/v0/general"

// Client calls the document-understanding partition endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	languages  []string
}

// Config holds document-understanding API client configuration.
type Config struct {
	APIKey    string
	BaseURL   string // Default: https://api.unstructured.io
	Timeout   time.Duration
	Languages []string
}

// NewClient creates a new document-understanding API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("document-understanding API key is required", nil)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.unstructured.io"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		languages:  languages,
	}, nil
}

// PartitionImage uploads one image for high-resolution partitioning and
// returns the structured elements found in it. One blocking call per
// image; failures surface to the caller, which decides whether to skip.
func (c *Client) PartitionImage(ctx context.Context, imagePath string) ([]partition.Element, error) {
	body, contentType, err := c.buildRequestBody(imagePath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+partitionPath, body)
	if err != nil {
		return nil, domain.APIError("Failed to build partition request", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("unstructured-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.APIError("Failed to send partition request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.APIError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var elements []partition.Element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, domain.APIError("Failed to decode partition response", err)
	}

	return elements, nil
}

// buildRequestBody assembles the multipart form: the image file plus
// the hi_res strategy and language hints required for image input.
func (c *Client) buildRequestBody(imagePath string) (*bytes.Buffer, string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, "", domain.IOError("Failed to read image", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("files", filepath.Base(imagePath))
	if err != nil {
		return nil, "", domain.APIError("Failed to create form file", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", domain.APIError("Failed to write form file", err)
	}

	if err := writer.WriteField("strategy", "hi_res"); err != nil {
		return nil, "", domain.APIError("Failed to write strategy field", err)
	}
	for _, lang := range c.languages {
		if err := writer.WriteField("languages", lang); err != nil {
			return nil, "", domain.APIError("Failed to write languages field", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", domain.APIError("Failed to finalize form body", err)
	}

	return body, writer.FormDataContentType(), nil
}
