package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a request or response body is kept for logs.
const maxLoggedBody = 4 << 10

const redacted = "[FILTERED]"

// redactedKeys are matched as substrings against lower-cased header names and JSON keys.
var redactedKeys = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"salt",
	"verify",
	"cookie",
}

// envelopeKeys wrap base64 provider payloads and are dropped wholesale. They are
// matched exactly so headers like X-Request-Id stay visible.
var envelopeKeys = map[string]bool{
	"request":  true,
	"response": true,
}

// LoggingMiddleware logs each request and its response with credentials and
// gateway payloads removed.
func LoggingMiddleware(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"trace_id", w.Header().Get(traceHeader),
			)

			reqBody := peekBody(r)
			log.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", redactQuery(r.URL.Query()),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"headers", redactHeaders(r.Header),
				"body", redactBody(reqBody),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			var respBody bytes.Buffer
			ww.Tee(&limitedWriter{buf: &respBody, n: maxLoggedBody})

			next.ServeHTTP(ww, r)

			status := ww.Status()
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
			log.Log(r.Context(), level, "response",
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", ww.BytesWritten(),
				"location", ww.Header().Get("Location"),
				"body", redactBody(respBody.Bytes()),
			)
		})
	}
}

// peekBody reads up to maxLoggedBody bytes and puts them back in front of the
// unread remainder so the handler still sees the full body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	return head
}

type readCloser struct {
	io.Reader
	io.Closer
}

type limitedWriter struct {
	buf *bytes.Buffer
	n   int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if room := l.n - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

func isRedacted(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range redactedKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func redactHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedacted(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactQuery(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for name, v := range values {
		if isRedacted(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(v, ",")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		if isRedacted(string(body)) {
			return "[FILTERED - contains sensitive data]"
		}
		return string(body)
	}
	out, err := json.Marshal(redactJSON(data))
	if err != nil {
		return "[unloggable body]"
	}
	return string(out)
}

func redactJSON(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if isRedacted(key) || envelopeKeys[strings.ToLower(key)] {
				out[key] = redacted
				continue
			}
			out[key] = redactJSON(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactJSON(item)
		}
		return out
	default:
		return v
	}
}
