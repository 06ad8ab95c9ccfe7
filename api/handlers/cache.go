package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClearHomeCache - операторский сброс кэша главной страницы,
// используется после массовых правок данных
func ClearHomeCache(c *gin.Context) {
	if HomeCache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cache is not configured"})
		return
	}

	if err := HomeCache.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cache"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared successfully"})
}
