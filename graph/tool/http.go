package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentgraph/agentgraph/graph/model"
)

// HTTPTool is a capability for making outbound HTTP requests.
//
// It supports GET and POST and returns the response status, headers,
// and body. Useful for agents that need to:
//   - Fetch data from REST APIs
//   - Send data to webhooks
//   - Interact with external services
//
// Input Parameters:
//   - method: HTTP method ("GET" or "POST", defaults to "GET")
//   - url: Target URL (required)
//   - headers: Optional map of HTTP headers
//   - body: Optional request body string (for POST requests)
//
// Output:
//   - status_code: HTTP status code (e.g., 200, 404)
//   - headers: Response headers as map
//   - body: Response body as string
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool creates a new HTTP tool. Timeouts come from the caller's
// context rather than the client.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{
		client: &http.Client{},
	}
}

// Name returns the tool identifier.
func (h *HTTPTool) Name() string {
	return "http_request"
}

// Spec returns the machine-readable tool description.
func (h *HTTPTool) Spec() model.ToolSpec {
	return model.ToolSpec{
		Name:        "http_request",
		Description: "Make an HTTP GET or POST request to a URL. Returns status code, headers, and body.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Target URL for the request",
				},
				"method": map[string]interface{}{
					"type":        "string",
					"description": "HTTP method: GET or POST (default GET)",
					"enum":        []string{"GET", "POST"},
				},
				"headers": map[string]interface{}{
					"type":        "object",
					"description": "Optional HTTP headers",
				},
				"body": map[string]interface{}{
					"type":        "string",
					"description": "Optional request body for POST",
				},
			},
			"required": []string{"url"},
		},
	}
}

// Call executes an HTTP request with the provided parameters.
func (h *HTTPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}

	method := "GET"
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if headers, ok := input["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			if valueStr, ok := value.(string); ok {
				req.Header.Set(key, valueStr)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	respHeaders := make(map[string]interface{})
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}
