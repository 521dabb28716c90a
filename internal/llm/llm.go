package llm

import (
	"context"
	stdErrors "errors"
	"fmt"
)

// Message 表示 Chat Completions 对话中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 描述一次 Completion 风格的调用。
// 可选字段使用指针，保持 nil 的字段不会出现在发往上游的请求体中。
type CompletionRequest struct {
	Model            string
	Prompt           string
	MaxTokens        *int
	Temperature      float64
	TopP             *float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             *string
}

// ChatRequest 描述一次 Chat 风格的调用。
type ChatRequest struct {
	Model    string
	Messages []Message
}

// CompletionChoice 是 Completion 响应中的一个候选结果。
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// CompletionResponse 是上游 Completion 调用的原始响应。
// 除 Choices 外的字段不保证存在，调用方不应依赖。
type CompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}

// ChatChoice 是 Chat 响应中的一个候选结果。
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse 是上游 Chat 调用的原始响应。
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// UpstreamError 表示上游 API 自身返回的失败（配额、参数、服务端错误）。
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error 实现 error 接口。
func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// TransportError 表示到达上游之前或之后的网络层失败，
// 与上游自身报告的失败区分开，便于运维定位连通性问题。
type TransportError struct {
	Op  string
	Err error
}

// Error 实现 error 接口。
func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 实现 errors.Unwrap。
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsUpstream 判断错误是否为上游返回的失败。
func AsUpstream(err error) (*UpstreamError, bool) {
	var target *UpstreamError
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AsTransport 判断错误是否为网络层失败。
func AsTransport(err error) (*TransportError, bool) {
	var target *TransportError
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}
