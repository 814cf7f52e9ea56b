package api

import (
	"github.com/gin-gonic/gin"

	"inspectra/internal/metrics"
)

func SetupRoutes(router *gin.Engine, handler *Handler, m *metrics.Metrics) {
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	{
		api.GET("/catalog", handler.GetCatalog)
		api.POST("/properties", handler.UpsertProperty)
		api.POST("/properties/geocode", handler.UpdateCoordinates)
		api.GET("/properties/:id/snapshots", handler.GetSnapshots)
		api.GET("/properties/:id/latest", handler.GetLatestSnapshot)
		api.GET("/properties/:id/trend", handler.GetTrend)
		api.POST("/assessments", handler.CreateAssessment)
		api.POST("/inspections/batch", handler.EnqueueInspections)
		api.GET("/bank-signals", handler.GetBankSignals)
		api.GET("/risk-map", handler.GetRiskMap)
	}
}
