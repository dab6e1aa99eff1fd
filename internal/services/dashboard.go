package services

import (
	"context"
	"math"

	"github.com/maintrack/backend/internal/models"
	"gorm.io/gorm"
)

const activityLimit = 10

// DashboardStats is a point-in-time snapshot; it is never stored.
type DashboardStats struct {
	CriticalEquipment int64 `json:"criticalEquipment"`
	TechnicianLoad    int   `json:"technicianLoad"`
	OpenRequests      int64 `json:"openRequests"`
}

type Dashboard struct {
	Stats      DashboardStats    `json:"stats"`
	Activities []models.Activity `json:"activities"`
}

type DashboardService struct {
	db         *gorm.DB
	visibility *Visibility
}

func NewDashboardService(db *gorm.DB, visibility *Visibility) *DashboardService {
	return &DashboardService{db: db, visibility: visibility}
}

// TechnicianLoad is round(100 * assigned / denominator) clamped to [0,100], 0 when denominator <= 0.
func TechnicianLoad(assigned, denominator int64) int {
	if denominator <= 0 {
		return 0
	}
	load := math.Round(100 * float64(assigned) / float64(denominator))
	switch {
	case load < 0:
		return 0
	case load > 100:
		return 100
	}
	return int(load)
}

// Stats computes the counters visible to viewer.
//
// For admins the load is open assigned requests per technician. For a technician
// it is the share of their visible open queue that is assigned to them.
func (s *DashboardService) Stats(ctx context.Context, viewer Viewer) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)

	equipPred, err := s.visibility.EquipmentPredicate(viewer)
	if err != nil {
		return nil, err
	}
	reqPred, err := s.visibility.RequestPredicate(ctx, viewer)
	if err != nil {
		return nil, err
	}

	var stats DashboardStats

	critical, err := Scope(db.Model(&models.Equipment{}).
		Where("equipment.status IN ?", models.CriticalEquipmentStatuses), equipPred)
	if err != nil {
		return nil, err
	}
	if err := critical.Count(&stats.CriticalEquipment).Error; err != nil {
		return nil, err
	}

	openQuery := func() (*gorm.DB, error) {
		return Scope(s.db.WithContext(ctx).Model(&models.MaintenanceRequest{}).
			Where("maintenance_requests.status NOT IN ?", models.ClosedStatuses), reqPred)
	}

	open, err := openQuery()
	if err != nil {
		return nil, err
	}
	if err := open.Count(&stats.OpenRequests).Error; err != nil {
		return nil, err
	}

	assignedQuery, err := openQuery()
	if err != nil {
		return nil, err
	}

	var assigned, denominator int64
	if viewer.IsAdmin() {
		if err := assignedQuery.Where("maintenance_requests.assigned_technician_id IS NOT NULL").
			Count(&assigned).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.User{}).
			Where("role IN ?", models.RoleAliases(models.RoleTechnician)).
			Count(&denominator).Error; err != nil {
			return nil, err
		}
	} else {
		if err := assignedQuery.Where("maintenance_requests.assigned_technician_id = ?", viewer.ID).
			Count(&assigned).Error; err != nil {
			return nil, err
		}
		denominator = stats.OpenRequests
	}

	stats.TechnicianLoad = TechnicianLoad(assigned, denominator)
	return &stats, nil
}

// Snapshot is the admin-scope stats pushed to every real-time client.
func (s *DashboardService) Snapshot(ctx context.Context) (*DashboardStats, error) {
	return s.Stats(ctx, AdminViewer)
}

// Activities returns the most recent requests visible to viewer.
func (s *DashboardService) Activities(ctx context.Context, viewer Viewer) ([]models.Activity, error) {
	pred, err := s.visibility.RequestPredicate(ctx, viewer)
	if err != nil {
		return nil, err
	}

	query, err := Scope(s.db.WithContext(ctx).
		Table("maintenance_requests").
		Select(`maintenance_requests.id, maintenance_requests.status, maintenance_requests.maintenance_type,
			maintenance_requests.priority, maintenance_requests.created_at, maintenance_requests.work_center,
			equipment.name AS equipment_name, tech.full_name AS technician_name`).
		Joins("LEFT JOIN equipment ON equipment.id = maintenance_requests.equipment_id").
		Joins("LEFT JOIN users AS tech ON tech.id = maintenance_requests.assigned_technician_id"), pred)
	if err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0, activityLimit)
	err = query.
		Order("maintenance_requests.created_at DESC, maintenance_requests.id DESC").
		Limit(activityLimit).
		Scan(&activities).Error
	return activities, err
}

// Get returns stats and recent activity for viewer.
func (s *DashboardService) Get(ctx context.Context, viewer Viewer) (*Dashboard, error) {
	stats, err := s.Stats(ctx, viewer)
	if err != nil {
		return nil, err
	}
	activities, err := s.Activities(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Stats: *stats, Activities: activities}, nil
}
