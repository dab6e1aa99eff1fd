package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/realtime"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and the real-time hub.
type HealthHandler struct {
	db  *gorm.DB
	hub *realtime.Hub
}

func NewHealthHandler(db *gorm.DB, hub *realtime.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// The process is up even without a database, so the status code stays 200.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	if h.db == nil {
		dbStatus = "not configured"
		overall = "degraded"
	} else if sqlDB, err := h.db.DB(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
			overall = "unhealthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  overall,
		"service": "maintrack",
		"components": gin.H{
			"database":         dbStatus,
			"realtime_clients": h.hub.ClientCount(),
		},
	})
}
