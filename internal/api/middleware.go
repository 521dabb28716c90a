package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"OpenAI-Gateway/internal/observability/metrics"
	"OpenAI-Gateway/pkg/logger"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDFrom 取出中间件注入的请求标识。
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// statusWriter 包装 http.ResponseWriter，用于捕获响应状态码。
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 捕获响应状态码并调用底层的 WriteHeader 方法。
func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withObservability 为每个请求分配 request_id，记录访问日志与指标。
func withObservability(handler string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))
		duration := time.Since(start)

		metrics.ObserveHTTPRequest(handler, r.Method, sw.status, duration)
		logger.Access().Info("api_request",
			"request_id", requestID,
			"handler", handler,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
