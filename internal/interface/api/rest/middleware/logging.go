package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const maxLogBodySize = 1 << 12 // 4 KB

// RequestLogGin logs one line per request. Only JSON bodies are captured;
// uploads and other payloads are summarized by type and declared length.
func RequestLogGin(logger *zap.Logger, mCounter *prometheus.CounterVec) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions ||
			c.Request.URL.Path == "/favicon.ico" ||
			strings.HasSuffix(c.Request.URL.Path, "/metrics") {
			c.Next()
			return
		}

		start := time.Now()
		body := captureBody(c.Request)

		c.Next()

		status := c.Writer.Status()
		if mCounter != nil {
			mCounter.WithLabelValues("http_requests_total").Inc()
			mCounter.WithLabelValues(fmt.Sprintf("http_%dxx_total", status/100)).Inc()
		}

		level := zap.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zap.WarnLevel
		}
		logger.Log(level, "HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("url", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("body", body),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

func captureBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}

	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		if r.ContentLength <= 0 {
			return ""
		}
		mediaType, _, _ := strings.Cut(ct, ";")
		if mediaType == "" {
			mediaType = "unknown"
		}
		return fmt.Sprintf("<%s, %d bytes>", mediaType, r.ContentLength)
	}

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, io.LimitReader(r.Body, maxLogBodySize))
	r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf.Bytes()), r.Body), Closer: r.Body}
	return buf.String()
}

type readCloser struct {
	io.Reader
	io.Closer
}
