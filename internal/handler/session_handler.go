package handler

import (
	"errors"
	"net/http"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/service"
	"edi-assistant-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SessionHandler 处理与会话记录相关的 API 请求。
type SessionHandler struct {
	service service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(service service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// GetHistory 处理获取会话历史的请求。
func (h *SessionHandler) GetHistory(c *gin.Context) {
	history, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    http.StatusBadRequest,
				"message": "Invalid session id",
				"data":    nil,
			})
			return
		}
		log.Errorf("[SessionHandler] 获取会话历史失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve session history",
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    history,
	})
}
