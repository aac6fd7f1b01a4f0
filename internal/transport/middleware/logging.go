package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	filtered = "[FILTERED]"
	// maxLoggedBody caps how much of a JSON body is kept for logging.
	maxLoggedBody = 64 << 10
)

// Matched as substrings of lower-cased header, query and JSON keys.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"cookie",
	"session",
	"credential",
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs every request and its response. JSON bodies are
// logged with sensitive fields masked; other bodies are skipped.
func LoggingMiddleware(lg *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := w.Header().Get(TraceHeader)

			lg.Info("incoming request",
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", maskQuery(r.URL.Query()),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", maskHeaders(r.Header),
				"body", captureRequestBody(r),
			)

			rec := &bodyRecorder{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
				skipBody:       strings.EqualFold(r.Header.Get("Upgrade"), "websocket"),
			}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			body := ""
			if isJSON(rec.Header().Get("Content-Type")) {
				body = maskBody(rec.body.Bytes())
			}

			lg.Log(context.Background(), level, "response",
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.body.Len(),
				"body", body,
			)
		})
	}
}

// bodyRecorder keeps the status and the first maxLoggedBody bytes written.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	body     *bytes.Buffer
	skipBody bool
}

func (rw *bodyRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *bodyRecorder) Write(b []byte) (int, error) {
	if !rw.skipBody && rw.body.Len() < maxLoggedBody {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets the realtime endpoint upgrade through the logger.
func (rw *bodyRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.skipBody = true
	if rw.status == 0 {
		rw.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (rw *bodyRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/json")
}

// captureRequestBody reads a small JSON body and puts it back for the handler.
func captureRequestBody(r *http.Request) string {
	if r.Body == nil || !isJSON(r.Header.Get("Content-Type")) || r.ContentLength > maxLoggedBody {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if len(raw) > maxLoggedBody {
		return ""
	}
	return maskBody(raw)
}

func maskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = filtered
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// maskQuery hides values such as the websocket access_token parameter.
func maskQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	masked := make(url.Values, len(values))
	for key, vs := range values {
		if isSensitive(key) {
			masked[key] = []string{filtered}
			continue
		}
		masked[key] = vs
	}
	return masked.Encode()
}

func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "[unparseable json]"
	}

	out, err := json.Marshal(maskJSON(data))
	if err != nil {
		return "[unmarshalable json]"
	}
	return string(out)
}

func maskJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				out[key] = filtered
				continue
			}
			out[key] = maskJSON(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskJSON(item)
		}
		return out
	default:
		return v
	}
}
