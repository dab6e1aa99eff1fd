package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/metrics"
	"github.com/maintrack/backend/internal/middleware"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/logger"
	"github.com/maintrack/backend/pkg/response"
)

const maxBodyBytes = 1 << 20

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery(), metrics.Middleware())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true
	r.Use(middleware.CORS(svc.origins), middleware.BodyLimit(maxBodyBytes))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "maintrack"})
	})
	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", metrics.Handler())

	// Real-time channel (token checked before the upgrade)
	r.GET("/ws", svc.realtimeHandler.Stream)

	admin := middleware.AdminRequired()
	adminOrTech := middleware.RequireRoles(models.RoleAdmin, models.RoleTechnician)
	adminOrEmployee := middleware.RequireRoles(models.RoleAdmin, models.RoleEmployee)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", svc.authLimiter.Middleware(), middleware.RequireDB(svc.db))
		{
			auth.POST("/signup", svc.authHandler.Signup)
			auth.POST("/login", svc.authHandler.Login)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.RequireDB(svc.db), middleware.AuditLog(svc.systemLogs))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)

			// Dashboard
			protected.GET("/dashboard", adminOrTech, svc.dashboardHandler.Get)
			protected.GET("/stats", svc.dashboardHandler.Stats)

			// Users
			protected.GET("/users", admin, svc.userHandler.List)
			protected.PATCH("/users/:id/role", admin, svc.userHandler.UpdateRole)

			// Teams
			protected.GET("/teams", adminOrTech, svc.teamHandler.List)
			protected.POST("/teams", admin, svc.teamHandler.Create)
			protected.POST("/teams/:id/members", admin, svc.teamHandler.AddMember)

			// Equipment (read for all roles)
			protected.GET("/equipment", svc.equipmentHandler.List)
			protected.GET("/equipment/:id", svc.equipmentHandler.Get)
			protected.POST("/equipment", admin, svc.equipmentHandler.Create)
			protected.PUT("/equipment/:id", admin, svc.equipmentHandler.Update)
			protected.DELETE("/equipment/:id", admin, svc.equipmentHandler.Delete)

			// Maintenance requests (scoped per role)
			protected.GET("/requests", svc.requestHandler.List)
			protected.GET("/requests/export", admin, svc.requestHandler.Export)
			protected.GET("/requests/:id", svc.requestHandler.Get)
			protected.POST("/requests", adminOrEmployee, svc.requestHandler.Create)
			protected.PUT("/requests/:id", adminOrTech, svc.requestHandler.Update)
			protected.DELETE("/requests/:id", admin, svc.requestHandler.Delete)

			// System Logs
			protected.GET("/system-logs", admin, svc.systemLogHandler.List)
		}
	}
}
