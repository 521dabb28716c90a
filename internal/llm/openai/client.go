package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"OpenAI-Gateway/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second

	// 上游错误响应体最多保留的字节数，避免把超长报文塞进错误信息。
	maxErrorBodyBytes = 2048
)

// Config 描述了调用 OpenAI API 所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client 通过 HTTP 调用 OpenAI 的 Completions 与 Chat Completions 接口。
// 进程启动时构造一次，随后被所有请求复用。
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供 OpenAI API Key")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// completionPayload 是 /completions 的请求体。
// 指针字段为 nil 时不参与序列化，调用方未传的参数不会以 null 发给上游。
type completionPayload struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      float64  `json:"temperature"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	PresencePenalty  float64  `json:"presence_penalty"`
	Stop             *string  `json:"stop,omitempty"`
}

// chatPayload 是 /chat/completions 的请求体。
type chatPayload struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
}

// Complete 调用 Completion 风格接口并返回原始响应。
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	payload := completionPayload{
		Model:            req.Model,
		Prompt:           req.Prompt,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
	}

	var decoded llm.CompletionResponse
	if err := c.post(ctx, "/completions", payload, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// Chat 调用 Chat 风格接口并返回原始响应。
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	payload := chatPayload{
		Model:    req.Model,
		Messages: req.Messages,
	}

	var decoded llm.ChatResponse
	if err := c.post(ctx, "/chat/completions", payload, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// post 发送一次 JSON 请求并把失败归类为上游错误或传输错误。
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return &llm.TransportError{Op: "序列化 OpenAI 请求失败", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return &llm.TransportError{Op: "构建 OpenAI 请求失败", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &llm.TransportError{Op: "请求 OpenAI 失败", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &llm.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &llm.TransportError{Op: "解析 OpenAI 响应失败", Err: err}
	}
	return nil
}

// 编译期确认 Client 满足统一接口。
var _ llm.Client = (*Client)(nil)

// String 仅用于日志，避免把密钥打出去。
func (c *Client) String() string {
	return fmt.Sprintf("openai(%s)", c.baseURL)
}
