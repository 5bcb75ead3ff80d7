package middleware

import (
	"strconv"
	"time"

	"edi-assistant-go/internal/audit"
	"edi-assistant-go/internal/metrics"
	"edi-assistant-go/internal/model"

	"github.com/gin-gonic/gin"
)

// EventRecorder 接收审计事件，实现不得阻塞。
type EventRecorder interface {
	Record(evt model.AskEvent) bool
}

// AskAudit 在处理器执行完成后生成审计事件。客户端标识以 salt 加盐哈希后记录。
func AskAudit(recorder EventRecorder, salt string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		recorder.Record(model.AskEvent{
			RequestID:  c.GetString(CtxRequestID),
			Origin:     c.GetHeader("Origin"),
			ClientHash: audit.HashIdentity(salt, ClientIdentity(c.Request)),
			UserAgent:  c.Request.UserAgent(),
			Question:   c.GetString(CtxQuestion),
			SessionID:  c.GetString(CtxSessionID),
			Route:      routeOf(c),
			Status:     c.Writer.Status(),
			LatencyMs:  time.Since(start).Milliseconds(),
			Timestamp:  start.UTC(),
		})
	}
}

// AskMetrics 记录 /ask 的请求数与耗时。
func AskMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		metrics.AskRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.AskLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// routeOf 返回处理器记录的问答路径；被限流等提前终止的请求记为 "rejected"。
func routeOf(c *gin.Context) string {
	if r := c.GetString(CtxRoute); r != "" {
		return r
	}
	if c.IsAborted() {
		return "rejected"
	}
	return "error"
}
