package handlers

import (
	"net/http"

	"bakery_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the dashboard.
type ReportHandler struct {
	reorderService services.ReorderService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs services.ReorderService) *ReportHandler {
	return &ReportHandler{reorderService: rs}
}

// GetDashboardSummary provides a summary of key metrics for the dashboard.
func (h *ReportHandler) GetDashboardSummary(c *gin.Context) {
	summary, err := h.reorderService.DashboardSummary(c.Request.Context())
	if err != nil {
		logServiceError(err, "GetDashboardSummary: Error from reorderService.DashboardSummary", map[string]interface{}{})
		respondServiceError(c, err, "fetch dashboard summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
