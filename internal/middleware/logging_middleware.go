package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/666daji/Food-Craft-sub000/internal/logging"
)

// TraceIDKey — ключ gin.Context с идентификатором трассы запроса
const TraceIDKey = "trace_id"

// TraceHeader возвращается клиенту с тем же идентификатором
const TraceHeader = "X-Trace-Id"

// RequestLogger назначает запросу trace-ID и пишет строку лога на каждый ответ.
// Пути из skip (health-check, /metrics) получают trace-ID, но не логируются.
type RequestLogger struct {
	log  *logging.Logger
	skip []string
}

func NewRequestLogger(skip ...string) *RequestLogger {
	return &RequestLogger{log: logging.GetAPILogger(), skip: skip}
}

// traceID берёт идентификатор спана otelgin, если он есть
func traceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := traceID(c)
		c.Set(TraceIDKey, id)
		c.Header(TraceHeader, id)

		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if slices.Contains(rl.skip, path) {
			return
		}
		status := c.Writer.Status()
		msg := "%s %s -> %d in %s (ip=%s trace=%s)"
		args := []interface{}{c.Request.Method, path, status, time.Since(start), c.ClientIP(), id}
		switch {
		case status >= 500:
			rl.log.Warn(msg, args...)
		case status >= 400:
			rl.log.Debug(msg, args...)
		default:
			rl.log.Info(msg, args...)
		}
	}
}
