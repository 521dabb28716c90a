package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	xerrors "OpenAI-Gateway/internal/errors"
	"OpenAI-Gateway/internal/gateway"
	"OpenAI-Gateway/internal/observability/alerting"
)

const (
	defaultGenerateModel  = "text-davinci-003"
	defaultTranslateModel = "gpt-3.5-turbo"
	defaultCodeModel      = "code-davinci-002"

	defaultTemperature = 0.7
)

// ModelDefaults 指定三个端点各自的默认模型。
type ModelDefaults struct {
	Generate  string
	Translate string
	Code      string
}

// Server 负责暴露 REST 接口，把请求原样交给操作服务。
type Server struct {
	addr   string
	svc    *gateway.Service
	models ModelDefaults
	alerts alerting.Dispatcher
}

// Option 定义服务器的可选配置。
type Option func(*Server)

// WithModelDefaults 覆盖端点的默认模型。
func WithModelDefaults(models ModelDefaults) Option {
	return func(s *Server) {
		if models.Generate != "" {
			s.models.Generate = models.Generate
		}
		if models.Translate != "" {
			s.models.Translate = models.Translate
		}
		if models.Code != "" {
			s.models.Code = models.Code
		}
	}
}

// WithAlertDispatcher 注入告警分发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) Option {
	return func(s *Server) {
		s.alerts = dispatcher
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, svc *gateway.Service, opts ...Option) *Server {
	server := &Server{
		addr: addr,
		svc:  svc,
		models: ModelDefaults{
			Generate:  defaultGenerateModel,
			Translate: defaultTranslateModel,
			Code:      defaultCodeModel,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(server)
		}
	}
	return server
}

// Handler 返回挂载全部路由的处理器，供 Start 与测试复用。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate_text", withObservability("generate_text", s.handleGenerateText))
	mux.HandleFunc("/api/translate_text", withObservability("translate_text", s.handleTranslateText))
	mux.HandleFunc("/api/complete_code", withObservability("complete_code", s.handleCompleteCode))
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// generateTextRequest 是 generate_text 与 complete_code 共用的请求体。
// 可选字段用指针表示，缺省与显式零值得以区分。
type generateTextRequest struct {
	Prompt           string   `json:"prompt"`
	Model            string   `json:"model"`
	MaxTokens        *int     `json:"max_tokens"`
	Temperature      *float64 `json:"temperature"`
	TopP             *float64 `json:"top_p"`
	FrequencyPenalty *float64 `json:"frequency_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty"`
	Stop             *string  `json:"stop"`
}

// translateTextRequest 是 translate_text 的请求体。
type translateTextRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	Model          string `json:"model"`
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	if !s.acceptPost(w, r) {
		return
	}

	var req generateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Error generating text: %v", err))
		return
	}
	if req.Prompt == "" {
		writeDetail(w, http.StatusBadRequest, "Error generating text: prompt is required")
		return
	}
	if err := validateSampling(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Error generating text: %v", err))
		return
	}

	result, err := s.svc.GenerateText(r.Context(), gateway.GenerateRequest{
		Prompt:           req.Prompt,
		Model:            orDefault(req.Model, s.models.Generate),
		MaxTokens:        req.MaxTokens,
		Temperature:      floatOr(req.Temperature, defaultTemperature),
		TopP:             req.TopP,
		FrequencyPenalty: floatOr(req.FrequencyPenalty, 0),
		PresencePenalty:  floatOr(req.PresencePenalty, 0),
		Stop:             req.Stop,
	})
	if err != nil {
		s.writeOperationError(w, r, "generate_text", "Error generating text", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	if !s.acceptPost(w, r) {
		return
	}

	var req translateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Error translating text: %v", err))
		return
	}
	if req.Text == "" {
		writeDetail(w, http.StatusBadRequest, "Error translating text: text is required")
		return
	}
	if req.TargetLanguage == "" {
		writeDetail(w, http.StatusBadRequest, "Error translating text: target_language is required")
		return
	}

	result, err := s.svc.TranslateText(r.Context(), gateway.TranslateRequest{
		Text:           req.Text,
		TargetLanguage: req.TargetLanguage,
		Model:          orDefault(req.Model, s.models.Translate),
	})
	if err != nil {
		s.writeOperationError(w, r, "translate_text", "Error translating text", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompleteCode(w http.ResponseWriter, r *http.Request) {
	if !s.acceptPost(w, r) {
		return
	}

	var req generateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Error completing code: %v", err))
		return
	}
	if req.Prompt == "" {
		writeDetail(w, http.StatusBadRequest, "Error completing code: prompt is required")
		return
	}
	if err := validateSampling(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Error completing code: %v", err))
		return
	}

	result, err := s.svc.CompleteCode(r.Context(), gateway.CompleteCodeRequest{
		Prompt:           req.Prompt,
		Model:            orDefault(req.Model, s.models.Code),
		MaxTokens:        req.MaxTokens,
		Temperature:      floatOr(req.Temperature, defaultTemperature),
		TopP:             req.TopP,
		FrequencyPenalty: floatOr(req.FrequencyPenalty, 0),
		PresencePenalty:  floatOr(req.PresencePenalty, 0),
		Stop:             req.Stop,
	})
	if err != nil {
		s.writeOperationError(w, r, "complete_code", "Error completing code", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) acceptPost(w http.ResponseWriter, r *http.Request) bool {
	if s.svc == nil {
		writeDetail(w, http.StatusServiceUnavailable, "service is not initialized")
		return false
	}
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeOperationError 把统一错误翻译为 HTTP 响应。
// 上游失败保留 "OpenAI API Error:" 前缀，其余失败使用各操作的通用前缀；
// 两类失败都以 500 返回，参数类失败以 400 返回。
func (s *Server) writeOperationError(w http.ResponseWriter, r *http.Request, operation, prefix string, err error) {
	status := http.StatusInternalServerError
	detail := fmt.Sprintf("%s: %v", prefix, rootCause(err))

	switch xerrors.CodeOf(err) {
	case xerrors.CodeInvalidArgument:
		status = http.StatusBadRequest
	case gateway.CodeUpstreamFailure:
		detail = fmt.Sprintf("OpenAI API Error: %v", rootCause(err))
	}

	if status >= http.StatusInternalServerError && xerrors.ShouldAlert(err) && s.alerts != nil {
		_ = s.alerts.Notify(r.Context(), alerting.FromError(operation, requestIDFrom(r.Context()), err))
	}

	writeDetail(w, status, detail)
}

// rootCause 返回包裹链底部的原始错误，用于拼接面向调用方的描述。
func rootCause(err error) error {
	if unified, ok := xerrors.From(err); ok && unified.Unwrap() != nil {
		return unified.Unwrap()
	}
	return err
}

// validateSampling 确保数值参数是有限值。
func validateSampling(req *generateTextRequest) error {
	checks := map[string]*float64{
		"temperature":       req.Temperature,
		"top_p":             req.TopP,
		"frequency_penalty": req.FrequencyPenalty,
		"presence_penalty":  req.PresencePenalty,
	}
	for field, value := range checks {
		if value == nil {
			continue
		}
		if math.IsNaN(*value) || math.IsInf(*value, 0) {
			return fmt.Errorf("%s must be a finite number", field)
		}
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be a positive integer")
	}
	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func floatOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
