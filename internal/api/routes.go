package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes. metrics may be nil.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics http.Handler) {
	router.GET("/health", handler.HealthCheck)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	v1 := router.Group("/api/v1")
	check := v1.Group("/check")
	check.POST("", handler.Check)            // POST /api/v1/check
	check.POST("/batch", handler.CheckBatch) // POST /api/v1/check/batch
}
