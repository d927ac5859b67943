// Package router wires the HTTP routes of the query engine service.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/internal/nlquery/handler"
)

// Register registers all routes on the engine.
func Register(engine *gin.Engine, query *handler.QueryHandler, admin *handler.AdminHandler) {
	engine.GET("/healthz", admin.Health)

	v1 := engine.Group("/v1")
	{
		v1.POST("/query", query.Query)
		v1.GET("/query/history", query.History)

		v1.POST("/database/connect", admin.ConnectDatabase)
		v1.POST("/documents", admin.UploadDocuments)
		v1.GET("/stats", admin.Stats)
	}

	logger.Info("HTTP routes registered")
}
