package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health 处理 GET /health。
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Root 处理 GET /。
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Use POST /ask"})
}
