package gateway

import (
	"context"
	"errors"
	"testing"

	xerrors "OpenAI-Gateway/internal/errors"
	"OpenAI-Gateway/internal/llm"
)

// stubClient 记录收到的请求并返回预设的响应。
type stubClient struct {
	completeReq  *llm.CompletionRequest
	chatReq      *llm.ChatRequest
	completeResp *llm.CompletionResponse
	chatResp     *llm.ChatResponse
	err          error
}

func (s *stubClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.completeReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.completeResp, nil
}

func (s *stubClient) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.chatReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.chatResp, nil
}

func completionResponse(text string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Choices: []llm.CompletionChoice{{Text: text}}}
}

func TestGenerateTextExtractsFirstChoice(t *testing.T) {
	stub := &stubClient{completeResp: completionResponse("X")}
	svc := NewService(stub)

	result, err := svc.GenerateText(context.Background(), GenerateRequest{
		Prompt:      "Write a short sentence.",
		Model:       "text-davinci-003",
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "X" {
		t.Fatalf("unexpected text: %q", result.Text)
	}
	if stub.completeReq.Prompt != "Write a short sentence." {
		t.Fatalf("prompt was altered: %q", stub.completeReq.Prompt)
	}
	if stub.completeReq.MaxTokens != nil || stub.completeReq.TopP != nil || stub.completeReq.Stop != nil {
		t.Fatalf("unset optionals must stay nil: %+v", stub.completeReq)
	}
}

func TestTranslateTextBuildsFixedPrompt(t *testing.T) {
	stub := &stubClient{chatResp: &llm.ChatResponse{
		Choices: []llm.ChatChoice{{Message: llm.Message{Role: "assistant", Content: "Y"}}},
	}}
	svc := NewService(stub)

	result, err := svc.TranslateText(context.Background(), TranslateRequest{
		Text:           "Hello",
		TargetLanguage: "fr",
		Model:          "gpt-3.5-turbo",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Translation != "Y" {
		t.Fatalf("unexpected translation: %q", result.Translation)
	}

	if len(stub.chatReq.Messages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(stub.chatReq.Messages))
	}
	msg := stub.chatReq.Messages[0]
	if msg.Role != "user" {
		t.Fatalf("unexpected role: %q", msg.Role)
	}
	// 指令模板是固定契约，逐字校验。
	if msg.Content != "Translate this text into fr: Hello" {
		t.Fatalf("unexpected prompt: %q", msg.Content)
	}
}

func TestCompleteCodeExtractsFirstChoice(t *testing.T) {
	stub := &stubClient{completeResp: completionResponse("Z")}
	svc := NewService(stub)

	result, err := svc.CompleteCode(context.Background(), CompleteCodeRequest{
		Prompt: "def add(a, b):",
		Model:  "code-davinci-002",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Code != "Z" {
		t.Fatalf("unexpected code: %q", result.Code)
	}
}

func TestEmptyChoicesIsInternalFailure(t *testing.T) {
	t.Run("generate", func(t *testing.T) {
		svc := NewService(&stubClient{completeResp: &llm.CompletionResponse{}})
		_, err := svc.GenerateText(context.Background(), GenerateRequest{Prompt: "p", Model: "m"})
		if xerrors.CodeOf(err) != CodeInternalFailure {
			t.Fatalf("expected internal failure, got %v", err)
		}
	})

	t.Run("translate", func(t *testing.T) {
		svc := NewService(&stubClient{chatResp: &llm.ChatResponse{}})
		_, err := svc.TranslateText(context.Background(), TranslateRequest{Text: "t", TargetLanguage: "fr", Model: "m"})
		if xerrors.CodeOf(err) != CodeInternalFailure {
			t.Fatalf("expected internal failure, got %v", err)
		}
	})

	t.Run("complete_code", func(t *testing.T) {
		svc := NewService(&stubClient{completeResp: nil})
		_, err := svc.CompleteCode(context.Background(), CompleteCodeRequest{Prompt: "p", Model: "m"})
		if xerrors.CodeOf(err) != CodeInternalFailure {
			t.Fatalf("expected internal failure, got %v", err)
		}
	})
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want xerrors.Code
	}{
		{
			name: "upstream",
			err:  &llm.UpstreamError{StatusCode: 429, Body: "quota exceeded"},
			want: CodeUpstreamFailure,
		},
		{
			name: "transport",
			err:  &llm.TransportError{Op: "dial", Err: errors.New("connection refused")},
			want: CodeTransportFailure,
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: CodeInternalFailure,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&stubClient{err: tc.err})
			_, err := svc.GenerateText(context.Background(), GenerateRequest{Prompt: "p", Model: "m"})
			if xerrors.CodeOf(err) != tc.want {
				t.Fatalf("expected code %s, got %v", tc.want, err)
			}
		})
	}
}

func TestValidation(t *testing.T) {
	svc := NewService(&stubClient{completeResp: completionResponse("ok")})

	if _, err := svc.GenerateText(context.Background(), GenerateRequest{Model: "m"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := svc.TranslateText(context.Background(), TranslateRequest{TargetLanguage: "fr", Model: "m"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := svc.TranslateText(context.Background(), TranslateRequest{Text: "hi", Model: "m"}); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestUninitializedService(t *testing.T) {
	var svc *Service
	if _, err := svc.GenerateText(context.Background(), GenerateRequest{Prompt: "p"}); xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected initialization failure, got %v", err)
	}
}
