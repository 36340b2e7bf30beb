package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InvoiceClientWrapper provides an interface for the invoice/document
// rendering service. The interface allows mocking in tests.
type InvoiceClientWrapper interface {
	Render(templateKey string, data map[string]interface{}) (*RenderResult, error)
}

// RenderResult is the document service's response to a render request.
type RenderResult struct {
	Success      bool   `json:"success"`
	DocumentPath string `json:"document_path"`
}

// InvoiceClient implements InvoiceClientWrapper against the document
// service's HTTP API.
type InvoiceClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewInvoiceClient creates and returns a new instance of InvoiceClient.
func NewInvoiceClient(baseURL, apiKey string) *InvoiceClient {
	return &InvoiceClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Render asks the document service to produce a PDF from a template and
// payload. The call is synchronous; the transition that triggered it rolls
// back when rendering fails.
func (c *InvoiceClient) Render(templateKey string, data map[string]interface{}) (*RenderResult, error) {
	payload := map[string]interface{}{
		"template_key": templateKey,
		"data":         data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize render payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/render", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to construct render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document service response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("document service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result RenderResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse document service response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("document service reported failure for template %s", templateKey)
	}

	return &result, nil
}
