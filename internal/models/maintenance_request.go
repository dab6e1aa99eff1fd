package models

import "time"

const (
	StatusNewRequest = "New Request"
	StatusInProgress = "In Progress"
	StatusRepaired   = "Repaired"
	StatusScrap      = "Scrap"

	MaintenanceForEquipment  = "equipment"
	MaintenanceForWorkCenter = "work_center"

	TypeCorrective = "Corrective"
	TypePreventive = "Preventive"

	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// ClosedStatuses end the pipeline; anything else counts as open.
var ClosedStatuses = []string{StatusRepaired, StatusScrap}

// RequestStatuses in pipeline order.
var RequestStatuses = []string{StatusNewRequest, StatusInProgress, StatusRepaired, StatusScrap}

func IsValidRequestStatus(s string) bool {
	for _, st := range RequestStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func IsValidMaintenanceType(t string) bool {
	return t == TypeCorrective || t == TypePreventive
}

func IsValidMaintenanceFor(f string) bool {
	return f == MaintenanceForEquipment || f == MaintenanceForWorkCenter
}

// MaintenanceRequest targets either an equipment row or a work center, never both.
type MaintenanceRequest struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	EquipmentID          *uint      `gorm:"index" json:"equipment_id"`
	MaintenanceFor       string     `gorm:"size:20;not null" json:"maintenance_for"`
	WorkCenter           *string    `gorm:"size:200" json:"work_center"`
	TeamName             *string    `gorm:"size:200;index" json:"team_name"`
	RequestedByID        *uint      `gorm:"index" json:"requested_by_id"`
	AssignedTechnicianID *uint      `gorm:"index" json:"assigned_technician_id"`
	MaintenanceType      string     `gorm:"size:20;not null" json:"maintenance_type"`
	Priority             int        `gorm:"not null" json:"priority"`
	Status               string     `gorm:"size:20;not null;index" json:"status"`
	Notes                *string    `gorm:"type:text" json:"notes"`
	Instructions         *string    `gorm:"type:text" json:"instructions"`
	ScheduledStart       *time.Time `json:"scheduled_start"`
	ScheduledEnd         *time.Time `json:"scheduled_end"`
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }

// MaintenanceRequestView adds display names resolved through joins.
type MaintenanceRequestView struct {
	MaintenanceRequest
	EquipmentName   *string `json:"equipment_name"`
	TechnicianName  *string `json:"technician_name"`
	RequestedByName *string `json:"requested_by_name"`
}

// Activity is one entry of the dashboard's recent activity feed.
type Activity struct {
	ID              uint      `json:"id"`
	Status          string    `json:"status"`
	MaintenanceType string    `json:"maintenance_type"`
	Priority        int       `json:"priority"`
	CreatedAt       time.Time `json:"created_at"`
	EquipmentName   *string   `json:"equipment_name"`
	WorkCenter      *string   `json:"work_center"`
	TechnicianName  *string   `json:"technician_name"`
}
