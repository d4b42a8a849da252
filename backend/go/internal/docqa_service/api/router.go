package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all the routes for the document QA service.
func RegisterRoutes(router gin.IRouter, api *API) {
	router.POST("/upload", api.UploadHandler)
	router.DELETE("/file/:id", api.DeleteFileHandler)
	router.POST("/process-query", api.ProcessQueryHandler)
	router.GET("/current-file", api.CurrentFileHandler)
	router.GET("/history", api.HistoryHandler)
	router.GET("/healthz", api.HealthzHandler)
}
