// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/middleware"
	"edi-assistant-go/internal/service"
	"edi-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const (
	retrievalErrorMessage   = "Failed to retrieve information. Please try again later."
	unavailableErrorMessage = "The assistant is temporarily unavailable. Please try again later."
)

// AskRequest 是 /ask 的请求体。query 为旧版前端使用的字段名。
type AskRequest struct {
	Question  string `json:"question"`
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// AskHandler 处理问答请求。
type AskHandler struct {
	service service.AskService
}

// NewAskHandler 创建一个新的 AskHandler。
func NewAskHandler(service service.AskService) *AskHandler {
	return &AskHandler{service: service}
}

// Ask 处理 POST /ask。请求体缺失或格式错误时按空问题处理，返回通用兜底回复。
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AskHandler] 请求体解析失败, 按空问题处理: %v", err)
	}
	question := req.Question
	if question == "" {
		question = req.Query
	}
	c.Set(middleware.CtxQuestion, question)
	c.Set(middleware.CtxSessionID, req.SessionID)

	resp, err := h.service.Ask(c.Request.Context(), service.AskRequest{
		Question:  question,
		SessionID: req.SessionID,
	})
	if err != nil {
		status := apperrors.HTTPStatus(err)
		message := retrievalErrorMessage
		if status == http.StatusServiceUnavailable {
			message = unavailableErrorMessage
		}
		c.Set(middleware.CtxRoute, "error")
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.Set(middleware.CtxRoute, resp.Route)
	c.JSON(http.StatusOK, resp)
}
