package handler

import (
	"edi-assistant-go/internal/metrics"
	"edi-assistant-go/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RouterOptions 为可选的路由组件，为空时对应功能不启用。
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        middleware.Limiter
	Recorder       middleware.EventRecorder
	AuditSalt      string
	Sessions       *SessionHandler
}

// NewRouter 组装 gin 引擎与全部路由。
func NewRouter(ask *AskHandler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger("/health", "/metrics"), gin.Recovery())
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.GET("/", Root)
	r.GET("/health", Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	askChain := []gin.HandlerFunc{middleware.AskMetrics()}
	if opts.Recorder != nil {
		askChain = append(askChain, middleware.AskAudit(opts.Recorder, opts.AuditSalt))
	}
	if opts.Limiter != nil {
		askChain = append(askChain, middleware.RateLimit(opts.Limiter))
	}
	askChain = append(askChain, ask.Ask)
	r.POST("/ask", askChain...)

	if opts.Sessions != nil {
		apiV1 := r.Group("/api/v1")
		{
			apiV1.GET("/sessions/:id/history", opts.Sessions.GetHistory)
		}
	}
	return r
}
