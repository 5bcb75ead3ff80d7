package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 是请求 ID 的请求头与响应头。
	RequestIDHeader = "X-Request-ID"

	// 以下键由 /ask 处理器写入 gin.Context，供审计与指标中间件读取。
	CtxRequestID       = "request_id"
	CtxClientRequestID = "client_request_id"
	CtxQuestion  = "ask.question"
	CtxSessionID = "ask.session_id"
	CtxRoute     = "ask.route"
)

// ClientIdentity 返回限流与审计使用的客户端标识：X-Forwarded-For 的第一个地址，
// 否则为 RemoteAddr 的主机部分，都取不到时为 "unknown"。
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// RequestID 为每个请求在服务端生成 ID，它也是审计记录的去重键。
// 客户端传入的 X-Request-ID 只作为关联信息单独保存，不参与去重。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if clientID := strings.TrimSpace(c.GetHeader(RequestIDHeader)); clientID != "" && len(clientID) <= 64 {
			c.Set(CtxClientRequestID, clientID)
		}
		id := uuid.NewString()
		c.Set(CtxRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
