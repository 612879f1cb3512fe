package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/coursepilot/pkg/logger"
)

// NewRouter builds the gin engine with every API route registered under
// /api/v0.
func NewRouter(deps *Dependencies, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	if len(corsOrigins) > 0 {
		engine.Use(corsMiddleware(corsOrigins))
	}

	api := engine.Group("/api/v0")
	api.GET("/health", handleHealth)
	api.GET("/documents", handleListDocuments(deps))
	api.POST("/documents", handleIngestText(deps))
	api.POST("/documents/pdf", handleIngestPDF(deps))
	api.DELETE("/documents/:doc_id", handleDeleteDocument(deps))
	api.POST("/query", handleQuery(deps))
	api.POST("/chat", handleChat(deps))
	api.POST("/youtube/load", handleYouTubeLoad(deps))
	return engine
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.FromContext(c.Request.Context()).Debug(
			"request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
