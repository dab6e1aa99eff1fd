package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Get returns the caller's stats and recent activity
// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	dash, err := h.dashboardService.Get(c.Request.Context(), viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// Stats returns the unscoped snapshot that is also pushed to real-time clients
// GET /api/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
