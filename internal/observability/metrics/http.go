package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type requestKey struct {
	handler string
	method  string
	code    string
}

type handlerKey struct {
	handler string
	method  string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram() *histogram {
	buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
	// Values greater than the last bucket are accounted for in the +Inf bucket via h.count.
}

type collector struct {
	mu       sync.Mutex
	requests map[requestKey]uint64
	errors   map[handlerKey]uint64
	latency  map[handlerKey]*histogram
}

var httpCollector = &collector{
	requests: make(map[requestKey]uint64),
	errors:   make(map[handlerKey]uint64),
	latency:  make(map[handlerKey]*histogram),
}

// ObserveHTTPRequest records metrics about one HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpCollector.observe(handler, method, status, duration)
}

func (c *collector) observe(handler, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[requestKey{handler: handler, method: method, code: strconv.Itoa(status)}]++
	key := handlerKey{handler: handler, method: method}
	if status >= 500 {
		c.errors[key]++
	}

	hist := c.latency[key]
	if hist == nil {
		hist = newHistogram()
		c.latency[key] = hist
	}
	hist.observe(duration.Seconds())
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, httpCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var builder strings.Builder
	builder.Grow(1024)

	builder.WriteString("# HELP aigateway_http_requests_total Total number of HTTP requests processed.\n")
	builder.WriteString("# TYPE aigateway_http_requests_total counter\n")
	for _, key := range sortedRequestKeys(c.requests) {
		builder.WriteString(fmt.Sprintf("aigateway_http_requests_total{handler=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), escape(key.code), c.requests[key]))
	}

	builder.WriteString("# HELP aigateway_http_request_errors_total Total number of HTTP requests that resulted in a server error.\n")
	builder.WriteString("# TYPE aigateway_http_request_errors_total counter\n")
	for _, key := range sortedHandlerKeys(c.errors) {
		builder.WriteString(fmt.Sprintf("aigateway_http_request_errors_total{handler=\"%s\",method=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), c.errors[key]))
	}

	builder.WriteString("# HELP aigateway_http_request_duration_seconds HTTP request duration in seconds.\n")
	builder.WriteString("# TYPE aigateway_http_request_duration_seconds histogram\n")
	for _, key := range sortedLatencyKeys(c.latency) {
		hist := c.latency[key]
		for idx, bound := range hist.buckets {
			builder.WriteString(fmt.Sprintf("aigateway_http_request_duration_seconds_bucket{handler=\"%s\",method=\"%s\",le=\"%s\"} %d\n",
				escape(key.handler), escape(key.method), formatFloat(bound), hist.counts[idx]))
		}
		builder.WriteString(fmt.Sprintf("aigateway_http_request_duration_seconds_bucket{handler=\"%s\",method=\"%s\",le=\"+Inf\"} %d\n",
			escape(key.handler), escape(key.method), hist.count))
		builder.WriteString(fmt.Sprintf("aigateway_http_request_duration_seconds_sum{handler=\"%s\",method=\"%s\"} %s\n",
			escape(key.handler), escape(key.method), formatFloat(hist.sum)))
		builder.WriteString(fmt.Sprintf("aigateway_http_request_duration_seconds_count{handler=\"%s\",method=\"%s\"} %d\n",
			escape(key.handler), escape(key.method), hist.count))
	}

	return builder.String()
}

func sortedRequestKeys(m map[requestKey]uint64) []requestKey {
	keys := make([]requestKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].handler != keys[j].handler {
			return keys[i].handler < keys[j].handler
		}
		if keys[i].method != keys[j].method {
			return keys[i].method < keys[j].method
		}
		return keys[i].code < keys[j].code
	})
	return keys
}

func sortedHandlerKeys(m map[handlerKey]uint64) []handlerKey {
	keys := make([]handlerKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sortHandlerKeys(keys)
	return keys
}

func sortedLatencyKeys(m map[handlerKey]*histogram) []handlerKey {
	keys := make([]handlerKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sortHandlerKeys(keys)
	return keys
}

func sortHandlerKeys(keys []handlerKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].handler != keys[j].handler {
			return keys[i].handler < keys[j].handler
		}
		return keys[i].method < keys[j].method
	})
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
