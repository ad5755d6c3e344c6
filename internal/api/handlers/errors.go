package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"debate_hub/internal/apperr"
)

// respondError 依錯誤分類對應 HTTP 狀態碼後回應。
// 沒有分類的錯誤一律當作伺服器內部錯誤。
func respondError(c *gin.Context, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "伺服器內部錯誤"})
		return
	}

	status := http.StatusInternalServerError
	switch kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Forbidden:
		status = http.StatusForbidden
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.Upstream:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
