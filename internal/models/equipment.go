package models

import "time"

const (
	EquipmentActive   = "Active"
	EquipmentDown     = "Down"
	EquipmentCritical = "Critical"
	EquipmentRetired  = "Retired"
)

// CriticalEquipmentStatuses are the statuses counted by the dashboard.
var CriticalEquipmentStatuses = []string{EquipmentDown, EquipmentCritical}

func IsValidEquipmentStatus(s string) bool {
	switch s {
	case EquipmentActive, EquipmentDown, EquipmentCritical, EquipmentRetired:
		return true
	}
	return false
}

type Equipment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:200;not null" json:"name"`
	SerialNumber string    `gorm:"size:200;not null;index" json:"serial_number"`
	Department   *string   `gorm:"size:200" json:"department"`
	Category     *string   `gorm:"size:200" json:"category"`
	Company      *string   `gorm:"size:200" json:"company"`
	Status       string    `gorm:"size:20;not null;index" json:"status"`
	EmployeeID   *uint     `gorm:"index" json:"employee_id"`
	TechnicianID *uint     `gorm:"index" json:"technician_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Equipment) TableName() string { return "equipment" }

// EquipmentView is an equipment row with the owner and technician names joined in.
type EquipmentView struct {
	Equipment
	EmployeeName   *string `json:"employee_name"`
	TechnicianName *string `json:"technician_name"`
}
