package services

import (
	"context"
	"errors"
	"strings"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/optional"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

type EquipmentPayload struct {
	Name         optional.Value[string]          `json:"name"`
	SerialNumber optional.Value[string]          `json:"serial_number"`
	Department   optional.Value[string]          `json:"department"`
	Category     optional.Value[string]          `json:"category"`
	Company      optional.Value[string]          `json:"company"`
	Status       optional.Value[string]          `json:"status"`
	EmployeeID   optional.Value[optional.Number] `json:"employee_id"`
	TechnicianID optional.Value[optional.Number] `json:"technician_id"`
}

type EquipmentService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewEquipmentService(db *gorm.DB, notifier Notifier) *EquipmentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &EquipmentService{db: db, notifier: notifier}
}

func (s *EquipmentService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("equipment").
		Select("equipment.*, owner.full_name AS employee_name, tech.full_name AS technician_name").
		Joins("LEFT JOIN users AS owner ON owner.id = equipment.employee_id").
		Joins("LEFT JOIN users AS tech ON tech.id = equipment.technician_id")
}

// List returns all equipment, optionally filtered by a case-insensitive match
// on name, serial number, category or company. Newest first.
func (s *EquipmentService) List(ctx context.Context, q string) ([]models.EquipmentView, error) {
	query := s.viewQuery(ctx)
	if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
		like := "%" + q + "%"
		query = query.Where(`LOWER(equipment.name) LIKE ? OR LOWER(equipment.serial_number) LIKE ?
			OR LOWER(equipment.category) LIKE ? OR LOWER(equipment.company) LIKE ?`, like, like, like, like)
	}
	rows := make([]models.EquipmentView, 0)
	err := query.Order("equipment.id DESC").Scan(&rows).Error
	return rows, err
}

func (s *EquipmentService) Get(ctx context.Context, id uint) (*models.EquipmentView, error) {
	var rows []models.EquipmentView
	if err := s.viewQuery(ctx).Where("equipment.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNotFound
	}
	return &rows[0], nil
}

func (s *EquipmentService) Create(ctx context.Context, p *EquipmentPayload) (*models.EquipmentView, error) {
	e := models.Equipment{Status: models.EquipmentActive}
	if err := s.apply(ctx, &e, p, true); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	s.notifier.NotifyChange()
	return s.Get(ctx, e.ID)
}

// Update merges p into equipment id. Absent keys keep their stored value.
func (s *EquipmentService) Update(ctx context.Context, id uint, p *EquipmentPayload) (*models.EquipmentView, error) {
	var e models.Equipment
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, err
	}
	if err := s.apply(ctx, &e, p, false); err != nil {
		return nil, err
	}
	result := s.db.WithContext(ctx).Model(&models.Equipment{}).Where("id = ?", id).
		Select("*").Omit("id", "created_at").Updates(&e)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports 0 for an unchanged row, so confirm it is really gone.
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Equipment{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, errNotFound
		}
	}
	s.notifier.NotifyChange()
	return s.Get(ctx, id)
}

func (s *EquipmentService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Equipment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	s.notifier.NotifyChange()
	return nil
}

func (s *EquipmentService) apply(ctx context.Context, e *models.Equipment, p *EquipmentPayload, create bool) error {
	if p.Name.Set || create {
		name := strings.TrimSpace(p.Name.Val)
		if !p.Name.Has() || name == "" {
			return response.NewBadRequest("Name is required")
		}
		e.Name = name
	}
	if p.SerialNumber.Set || create {
		serial := strings.TrimSpace(p.SerialNumber.Val)
		if !p.SerialNumber.Has() || serial == "" {
			return response.NewBadRequest("Serial number is required")
		}
		e.SerialNumber = serial
	}
	if p.Department.Set {
		e.Department = trimmedPtr(p.Department)
	}
	if p.Category.Set {
		e.Category = trimmedPtr(p.Category)
	}
	if p.Company.Set {
		e.Company = trimmedPtr(p.Company)
	}
	if p.Status.Set && !p.Status.Null {
		status := strings.TrimSpace(p.Status.Val)
		if !models.IsValidEquipmentStatus(status) {
			return response.NewBadRequest("status must be one of Active, Down, Critical, Retired")
		}
		e.Status = status
	}

	if p.EmployeeID.Cleared() {
		e.EmployeeID = nil
	} else if p.EmployeeID.Set {
		id, err := userRef(ctx, s.db, p.EmployeeID, "employee_id", "")
		if err != nil {
			return err
		}
		e.EmployeeID = &id
	}
	if create && !p.TechnicianID.Has() && !p.TechnicianID.Invalid {
		return response.NewBadRequest("technician_id is required")
	}
	if p.TechnicianID.Cleared() {
		e.TechnicianID = nil
	} else if p.TechnicianID.Set {
		id, err := userRef(ctx, s.db, p.TechnicianID, "technician_id", models.RoleTechnician)
		if err != nil {
			return err
		}
		e.TechnicianID = &id
	}
	return nil
}
