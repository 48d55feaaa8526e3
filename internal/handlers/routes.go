package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	// Health check
	router.GET("/health", h.HealthCheck)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Tracking redirects hit by recipients, kept outside the API group
	router.GET("/t/open/:tid", h.TrackOpen)
	router.GET("/t/click/:tid", h.TrackClick)

	// API routes
	api := router.Group("/api/v1")
	{
		// Sending domains
		api.GET("/domains", h.GetDomains)
		api.POST("/domains", h.CreateDomain)
		api.GET("/domains/:id/warmup", h.GetWarmupProgress)
		api.POST("/domains/:id/pause", h.PauseDomain)
		api.POST("/domains/:id/resume", h.ResumeDomain)
		api.POST("/domains/:id/bounce", h.RecordBounce)
		api.POST("/domains/:id/complaint", h.RecordComplaint)

		// Inbound reply webhook
		api.POST("/inbound", h.InboundWebhook)

		// Scheduler control
		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}
