package services

import (
	"context"
	"time"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

// Record satisfies middleware.AuditRecorder.
func (s *SystemLogService) Record(ctx context.Context, entry *models.SystemLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := make([]models.SystemLog, 0)
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// CleanupOldLogs deletes entries older than retentionDays and returns how many were removed.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RetentionScheduler runs CleanupOldLogs on a cron schedule.
type RetentionScheduler struct {
	service       *SystemLogService
	retentionDays int
	cron          *cron.Cron
	log           zerolog.Logger
}

func NewRetentionScheduler(service *SystemLogService, retentionDays int) *RetentionScheduler {
	return &RetentionScheduler{service: service, retentionDays: retentionDays}
}

// Start runs one cleanup immediately, then on every tick of schedule.
func (r *RetentionScheduler) Start(schedule string) error {
	r.log = logger.Component("audit-retention")
	if r.retentionDays <= 0 {
		r.log.Info().Msg("audit log cleanup disabled (retention_days <= 0)")
		return nil
	}

	r.cron = cron.New(cron.WithLogger(cron.PrintfLogger(&r.log)))
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return err
	}
	r.run()
	r.cron.Start()
	r.log.Info().Str("schedule", schedule).Int("retention_days", r.retentionDays).Msg("audit log cleanup scheduled")
	return nil
}

func (r *RetentionScheduler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

func (r *RetentionScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := r.service.CleanupOldLogs(ctx, r.retentionDays)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to clean up audit logs")
		return
	}
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Int("retention_days", r.retentionDays).Msg("cleaned up audit logs")
	}
}
