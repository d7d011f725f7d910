package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all API v1 routes. Staff-only operations sit in
// their own group behind the token middleware.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/auth/login", h.login)

	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.DELETE("/filters", h.clearFilters)
		incidents.GET("/:id", h.getIncident)
	}

	staff := api.Group("/incidents", StaffAuthMiddleware(h.cfg, h.logger))
	{
		staff.PATCH("/:id/status", h.setStatus)
		staff.DELETE("/:id", h.deleteIncident)
		staff.POST("/:id/report", h.editReport)
	}

	api.POST("/viewport", h.setViewport)

	selection := api.Group("/selection")
	{
		selection.GET("", h.getSelection)
		selection.DELETE("", h.clearSelection)
		selection.PUT("/:id", h.selectIncident)
	}

	reports := api.Group("/reports")
	{
		reports.POST("", h.createReport)
		reports.GET("/:sid", h.getReport)
		reports.DELETE("/:sid", h.cancelReport)
		reports.POST("/:sid/address", h.submitAddress)
		reports.POST("/:sid/pin", h.placePin)
		reports.POST("/:sid/pin/confirm", h.confirmPin)
		reports.DELETE("/:sid/pin", h.denyPin)
		reports.POST("/:sid/continue", h.continueReport)
		reports.POST("/:sid/back", h.backReport)
		reports.PUT("/:sid/fields", h.setReportField)
		reports.POST("/:sid/picture", h.uploadPicture)
		reports.POST("/:sid/submit", h.submitReport)
	}

	api.GET("/system/health", h.healthCheck)
}
