package gateway

import (
	"context"
	"fmt"
	"strings"

	xerrors "OpenAI-Gateway/internal/errors"
	"OpenAI-Gateway/internal/llm"
)

// translationPromptTemplate 是翻译指令的固定模板。
// 模板文本是对上游可见的契约，target_language 原样拼入，不做校验或转义。
const translationPromptTemplate = "Translate this text into %s: %s"

const (
	CodeUpstreamFailure  xerrors.Code = "UPSTREAM_FAILURE"
	CodeTransportFailure xerrors.Code = "TRANSPORT_FAILURE"
	CodeInternalFailure  xerrors.Code = "INTERNAL_FAILURE"
)

func init() {
	xerrors.Register(CodeUpstreamFailure, xerrors.Attributes{
		Message:  "upstream api reported a failure",
		Severity: xerrors.SeverityWarning,
		Alert:    true,
	})
	xerrors.Register(CodeTransportFailure, xerrors.Attributes{
		Message:  "failed to reach upstream api",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
	xerrors.Register(CodeInternalFailure, xerrors.Attributes{
		Message:  "internal processing failure",
		Severity: xerrors.SeverityWarning,
		Alert:    false,
	})
}

// GenerateRequest 描述一次文本生成操作。
// 可选采样参数保持指针形态，调用方未传的值不会进入上游请求。
type GenerateRequest struct {
	Prompt           string
	Model            string
	MaxTokens        *int
	Temperature      float64
	TopP             *float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             *string
}

// TranslateRequest 描述一次翻译操作。
type TranslateRequest struct {
	Text           string
	TargetLanguage string
	Model          string
}

// CompleteCodeRequest 描述一次代码补全操作。
// 形态与 GenerateRequest 相同，差异只体现在默认模型上。
type CompleteCodeRequest struct {
	Prompt           string
	Model            string
	MaxTokens        *int
	Temperature      float64
	TopP             *float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             *string
}

// GenerateResult 是文本生成的归一化结果。
type GenerateResult struct {
	Text string `json:"text"`
}

// TranslateResult 是翻译的归一化结果。
type TranslateResult struct {
	Translation string `json:"translation"`
}

// CompleteCodeResult 是代码补全的归一化结果。
type CompleteCodeResult struct {
	Code string `json:"code"`
}

// Service 负责编排一次大模型调用并归一化结果或失败。
// 不持有跨请求的可变状态，天然并发安全。
type Service struct {
	llm llm.Client
}

// NewService 构造操作服务。
func NewService(client llm.Client) *Service {
	return &Service{llm: client}
}

// GenerateText 调用 Completion 接口并提取 choices[0].text。
func (s *Service) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "prompt 不能为空")
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Model:            req.Model,
		Prompt:           req.Prompt,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
	})
	if err != nil {
		return nil, classify(err)
	}

	text, err := firstCompletionText(resp)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Text: text}, nil
}

// TranslateText 通过 Chat 接口完成翻译并提取 choices[0].message.content。
func (s *Service) TranslateText(ctx context.Context, req TranslateRequest) (*TranslateResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "text 不能为空")
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "target_language 不能为空")
	}

	resp, err := s.llm.Chat(ctx, llm.ChatRequest{
		Model: req.Model,
		Messages: []llm.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(translationPromptTemplate, req.TargetLanguage, req.Text),
			},
		},
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, xerrors.New(CodeInternalFailure, "上游响应缺少 choices")
	}
	return &TranslateResult{Translation: resp.Choices[0].Message.Content}, nil
}

// CompleteCode 调用 Completion 接口并提取 choices[0].text。
// 这一层不区分代码与普通文本，差异完全由模型选择承载。
func (s *Service) CompleteCode(ctx context.Context, req CompleteCodeRequest) (*CompleteCodeResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "prompt 不能为空")
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Model:            req.Model,
		Prompt:           req.Prompt,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
		Stop:             req.Stop,
	})
	if err != nil {
		return nil, classify(err)
	}

	text, err := firstCompletionText(resp)
	if err != nil {
		return nil, err
	}
	return &CompleteCodeResult{Code: text}, nil
}

func (s *Service) ready() error {
	if s == nil || s.llm == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "操作服务未初始化")
	}
	return nil
}

// firstCompletionText 提取首个候选结果。空的 choices 必须归类为内部失败，
// 而不是越界崩溃。
func firstCompletionText(resp *llm.CompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", xerrors.New(CodeInternalFailure, "上游响应缺少 choices")
	}
	return resp.Choices[0].Text, nil
}

// classify 把适配层的失败翻译为统一错误码。
func classify(err error) error {
	if err == nil {
		return nil
	}
	if upstream, ok := llm.AsUpstream(err); ok {
		return xerrors.Wrap(CodeUpstreamFailure, err, "OpenAI 上游返回失败",
			xerrors.WithMetadata("status", fmt.Sprintf("%d", upstream.StatusCode)))
	}
	if _, ok := llm.AsTransport(err); ok {
		return xerrors.Wrap(CodeTransportFailure, err, "连接 OpenAI 失败")
	}
	return xerrors.Wrap(CodeInternalFailure, err, "处理上游调用失败")
}
