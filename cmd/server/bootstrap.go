package main

import (
	"context"
	"errors"
	"time"

	"github.com/maintrack/backend/internal/config"
	"github.com/maintrack/backend/internal/handlers"
	"github.com/maintrack/backend/internal/metrics"
	"github.com/maintrack/backend/internal/middleware"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/realtime"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/internal/utils"
	"github.com/maintrack/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	db          *gorm.DB
	hub         *realtime.Hub
	origins     *middleware.OriginPolicy
	authLimiter *middleware.RateLimiter
	broadcaster *services.StatsBroadcaster
	retention   *services.RetentionScheduler
	systemLogs  *services.SystemLogService
	authService *services.AuthService

	authHandler      *handlers.AuthHandler
	userHandler      *handlers.UserHandler
	teamHandler      *handlers.TeamHandler
	equipmentHandler *handlers.EquipmentHandler
	requestHandler   *handlers.RequestHandler
	dashboardHandler *handlers.DashboardHandler
	systemLogHandler *handlers.SystemLogHandler
	healthHandler    *handlers.HealthHandler
	realtimeHandler  *handlers.RealtimeHandler
}

// openDatabase connects and migrates. It returns nil instead of failing so the
// server can start degraded and answer 503 on data endpoints.
func openDatabase(cfg *config.DatabaseConfig) *gorm.DB {
	db, err := models.InitDB(cfg)
	if errors.Is(err, models.ErrNotConfigured) {
		logger.Warn().Msg("Database not configured, data endpoints will answer 503")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("Database unavailable, data endpoints will answer 503")
		return nil
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Error().Err(err).Msg("Failed to migrate database")
		return nil
	}
	return db
}

// newAppServices wires services and handlers around db, which may be nil.
func newAppServices(cfg *config.Config, db *gorm.DB) *appServices {
	hub := realtime.NewHub()
	visibility := services.NewVisibility(db)
	dashboard := services.NewDashboardService(db, visibility)
	broadcaster := services.NewStatsBroadcaster(dashboard, hub)

	requests := services.NewRequestService(db, visibility, broadcaster)
	users := services.NewUserService(db, broadcaster)
	authService := services.NewAuthService(db, cfg.JWT.ExpireHour)
	systemLogs := services.NewSystemLogService(db)
	origins := middleware.NewOriginPolicy(cfg.CORS.AllowedOrigins)

	var snapshot handlers.SnapshotSource
	if db != nil {
		snapshot = broadcaster
	}

	return &appServices{
		db:          db,
		hub:         hub,
		origins:     origins,
		authLimiter: middleware.NewRateLimiter(5, 20),
		broadcaster: broadcaster,
		retention:   services.NewRetentionScheduler(systemLogs, cfg.Audit.RetentionDays),
		systemLogs:  systemLogs,
		authService: authService,

		authHandler:      handlers.NewAuthHandler(authService, users),
		userHandler:      handlers.NewUserHandler(users),
		teamHandler:      handlers.NewTeamHandler(services.NewTeamService(db, visibility)),
		equipmentHandler: handlers.NewEquipmentHandler(services.NewEquipmentService(db, broadcaster)),
		requestHandler:   handlers.NewRequestHandler(requests, services.NewExportService(requests)),
		dashboardHandler: handlers.NewDashboardHandler(dashboard),
		systemLogHandler: handlers.NewSystemLogHandler(systemLogs),
		healthHandler:    handlers.NewHealthHandler(db, hub),
		realtimeHandler:  handlers.NewRealtimeHandler(hub, snapshot, origins),
	}
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		logger.Warn().Msg("JWT_SECRET is not set, using the development secret")
	}

	db := openDatabase(&cfg.Database)
	svc := newAppServices(cfg, db)

	if err := metrics.RegisterRealtimeClients(svc.hub.ClientCount); err != nil {
		logger.Warn().Err(err).Msg("Failed to register real-time metrics")
	}
	if db == nil {
		return svc
	}
	if err := metrics.RegisterDatabase(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to register database metrics")
	}

	if cfg.Admin.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		admin, created, err := svc.authService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName)
		cancel()
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Failed to create admin user")
		case created:
			logger.Info().Str("email", admin.Email).Msg("Admin user created")
		}
	}

	if err := svc.retention.Start(cfg.Audit.CleanupCron); err != nil {
		logger.Warn().Err(err).Msg("Failed to schedule audit log cleanup")
	}
	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.retention.Stop()
	s.authLimiter.Stop()
	s.broadcaster.Wait()
	s.hub.Close()
	logger.Info().Msg("All background workers stopped")

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
