// Package aigateway provides a small typed client for the gateway REST API.
package aigateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It covers the full upstream round trip, so it is kept
// generous compared to typical REST defaults.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with the gateway REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// GenerateTextRequest is the payload accepted by the generate_text endpoint.
// Optional fields left nil are omitted from the request body.
type GenerateTextRequest struct {
	Prompt           string   `json:"prompt"`
	Model            string   `json:"model,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	Stop             *string  `json:"stop,omitempty"`
}

// TranslateTextRequest is the payload accepted by the translate_text endpoint.
type TranslateTextRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	Model          string `json:"model,omitempty"`
}

// CompleteCodeRequest is the payload accepted by the complete_code endpoint.
type CompleteCodeRequest = GenerateTextRequest

// APIError represents a non-2xx response from the gateway. The gateway
// reports every failure as a JSON object with a single "detail" field.
type APIError struct {
	StatusCode int
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("aigateway api error (%d): %s", e.StatusCode, e.Detail)
}

// NewClient instantiates a client for the gateway API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// GenerateText calls the generate_text endpoint and returns the generated text.
func (c *Client) GenerateText(ctx context.Context, req GenerateTextRequest) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.post(ctx, "/api/generate_text", req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// TranslateText calls the translate_text endpoint and returns the translation.
func (c *Client) TranslateText(ctx context.Context, req TranslateTextRequest) (string, error) {
	var out struct {
		Translation string `json:"translation"`
	}
	if err := c.post(ctx, "/api/translate_text", req, &out); err != nil {
		return "", err
	}
	return out.Translation, nil
}

// CompleteCode calls the complete_code endpoint and returns the completion.
func (c *Client) CompleteCode(ctx context.Context, req CompleteCodeRequest) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := c.post(ctx, "/api/complete_code", req, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Detail == "" {
			apiErr.Detail = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
