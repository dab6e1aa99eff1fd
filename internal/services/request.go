package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/optional"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

var errNotFound = response.NewNotFound("Not found")

// RequestPayload is the body of a create or update. Every field is optional;
// which ones are honored depends on the caller's role.
type RequestPayload struct {
	EquipmentID          optional.Value[optional.Number] `json:"equipment_id"`
	MaintenanceFor       optional.Value[string]          `json:"maintenance_for"`
	WorkCenter           optional.Value[string]          `json:"work_center"`
	TeamName             optional.Value[string]          `json:"team_name"`
	RequestedByID        optional.Value[optional.Number] `json:"requested_by_id"`
	AssignedTechnicianID optional.Value[optional.Number] `json:"assigned_technician_id"`
	MaintenanceType      optional.Value[string]          `json:"maintenance_type"`
	Priority             optional.Value[optional.Number] `json:"priority"`
	Status               optional.Value[string]          `json:"status"`
	Notes                optional.Value[string]          `json:"notes"`
	Instructions         optional.Value[string]          `json:"instructions"`
	ScheduledStart       optional.Value[optional.Time]   `json:"scheduled_start"`
	ScheduledEnd         optional.Value[optional.Time]   `json:"scheduled_end"`
}

// RequestFilter bounds a listing by COALESCE(scheduled_start, created_at).
type RequestFilter struct {
	From *time.Time
	To   *time.Time
}

type RequestService struct {
	db         *gorm.DB
	visibility *Visibility
	notifier   Notifier
}

func NewRequestService(db *gorm.DB, visibility *Visibility, notifier Notifier) *RequestService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RequestService{db: db, visibility: visibility, notifier: notifier}
}

const requestViewColumns = `maintenance_requests.*,
	equipment.name AS equipment_name,
	tech.full_name AS technician_name,
	requester.full_name AS requested_by_name`

const scheduleKey = "COALESCE(maintenance_requests.scheduled_start, maintenance_requests.created_at)"

func (s *RequestService) viewQuery(ctx context.Context, viewer Viewer) (*gorm.DB, error) {
	pred, err := s.visibility.RequestPredicate(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return Scope(s.db.WithContext(ctx).
		Table("maintenance_requests").
		Select(requestViewColumns).
		Joins("LEFT JOIN equipment ON equipment.id = maintenance_requests.equipment_id").
		Joins("LEFT JOIN users AS tech ON tech.id = maintenance_requests.assigned_technician_id").
		Joins("LEFT JOIN users AS requester ON requester.id = maintenance_requests.requested_by_id"), pred)
}

// List returns the requests visible to viewer, earliest scheduled first.
func (s *RequestService) List(ctx context.Context, viewer Viewer, filter RequestFilter) ([]models.MaintenanceRequestView, error) {
	query, err := s.viewQuery(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if filter.From != nil {
		query = query.Where(scheduleKey+" >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where(scheduleKey+" <= ?", filter.To.UTC())
	}

	rows := make([]models.MaintenanceRequestView, 0)
	err = query.Order(scheduleKey + " ASC").Order("maintenance_requests.id ASC").Scan(&rows).Error
	return rows, err
}

// Get returns one request if viewer may see it. Rows outside the scope are reported as not found.
func (s *RequestService) Get(ctx context.Context, viewer Viewer, id uint) (*models.MaintenanceRequestView, error) {
	query, err := s.viewQuery(ctx, viewer)
	if err != nil {
		return nil, err
	}
	var rows []models.MaintenanceRequestView
	if err := query.Where("maintenance_requests.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNotFound
	}
	return &rows[0], nil
}

// Create inserts a request as viewer. Employees always file for themselves and
// cannot assign a technician; new requests always start in New Request.
func (s *RequestService) Create(ctx context.Context, viewer Viewer, p *RequestPayload) (*models.MaintenanceRequestView, error) {
	if viewer.Role != models.RoleAdmin && viewer.Role != models.RoleEmployee {
		return nil, errForbidden
	}

	req := models.MaintenanceRequest{
		MaintenanceFor: models.MaintenanceForEquipment,
		Priority:       models.DefaultPriority,
		Status:         models.StatusNewRequest,
	}

	if f := strings.TrimSpace(p.MaintenanceFor.Val); p.MaintenanceFor.Invalid || f != "" {
		if !models.IsValidMaintenanceFor(f) {
			return nil, response.NewBadRequest("maintenance_for must be equipment or work_center")
		}
		req.MaintenanceFor = f
	}

	if err := s.applyTarget(&req, p); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, &req); err != nil {
		return nil, err
	}

	req.MaintenanceType = strings.TrimSpace(p.MaintenanceType.Or(""))
	if req.MaintenanceType == "" {
		return nil, response.NewBadRequest("maintenance_type is required")
	}
	if !models.IsValidMaintenanceType(req.MaintenanceType) {
		return nil, response.NewBadRequest("maintenance_type must be Corrective or Preventive")
	}

	if p.Priority.Set && !p.Priority.Null {
		priority, err := parsePriority(p.Priority)
		if err != nil {
			return nil, err
		}
		req.Priority = priority
	}

	req.TeamName = trimmedPtr(p.TeamName)
	req.Notes = p.Notes.Ptr()
	req.Instructions = p.Instructions.Ptr()

	var err error
	if req.ScheduledStart, err = timePtr(p.ScheduledStart, "scheduled_start"); err != nil {
		return nil, err
	}
	if req.ScheduledEnd, err = timePtr(p.ScheduledEnd, "scheduled_end"); err != nil {
		return nil, err
	}
	if err := checkSchedule(req.ScheduledStart, req.ScheduledEnd); err != nil {
		return nil, err
	}

	requester := viewer.ID
	req.RequestedByID = &requester
	if viewer.IsAdmin() {
		if p.RequestedByID.Set && !p.RequestedByID.Null {
			id, err := userRef(ctx, s.db, p.RequestedByID, "requested_by_id", "")
			if err != nil {
				return nil, err
			}
			req.RequestedByID = &id
		}
		if p.AssignedTechnicianID.Set && !p.AssignedTechnicianID.Null {
			id, err := userRef(ctx, s.db, p.AssignedTechnicianID, "assigned_technician_id", models.RoleTechnician)
			if err != nil {
				return nil, err
			}
			req.AssignedTechnicianID = &id
		}
	}

	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, err
	}
	s.notifier.NotifyChange()
	return s.Get(ctx, viewer, req.ID)
}

// Update applies p to request id.
//
// Technicians may only move status and scheduled_end, and only on rows they can
// see; a row outside their scope is indistinguishable from a missing one.
// Admins may change every field; absent keys keep their stored value.
func (s *RequestService) Update(ctx context.Context, viewer Viewer, id uint, p *RequestPayload) (*models.MaintenanceRequestView, error) {
	var err error
	switch viewer.Role {
	case models.RoleTechnician:
		err = s.updateAsTechnician(ctx, viewer, id, p)
	case models.RoleAdmin:
		err = s.updateAsAdmin(ctx, id, p)
	default:
		return nil, errForbidden
	}
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyChange()
	return s.Get(ctx, viewer, id)
}

func (s *RequestService) updateAsTechnician(ctx context.Context, viewer Viewer, id uint, p *RequestPayload) error {
	pred, err := s.visibility.RequestPredicate(ctx, viewer)
	if err != nil {
		return err
	}
	scoped := func() (*gorm.DB, error) {
		return Scope(s.db.WithContext(ctx).Model(&models.MaintenanceRequest{}).
			Where("maintenance_requests.id = ?", id), pred)
	}

	query, err := scoped()
	if err != nil {
		return err
	}
	var rows []models.MaintenanceRequest
	if err := query.Select("maintenance_requests.id", "maintenance_requests.scheduled_start").Limit(1).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return errNotFound
	}

	changes := map[string]interface{}{}
	if p.Status.Has() {
		status := strings.TrimSpace(p.Status.Val)
		if !models.IsValidRequestStatus(status) {
			return response.NewBadRequest("status must be one of " + strings.Join(models.RequestStatuses, ", "))
		}
		changes["status"] = status
	}
	if p.ScheduledEnd.Set {
		end, err := timePtr(p.ScheduledEnd, "scheduled_end")
		if err != nil {
			return err
		}
		if err := checkSchedule(rows[0].ScheduledStart, end); err != nil {
			return err
		}
		changes["scheduled_end"] = end
	}
	if len(changes) == 0 {
		return nil
	}
	changes["updated_at"] = time.Now().UTC()

	query, err = scoped()
	if err != nil {
		return err
	}
	return query.Updates(changes).Error
}

func (s *RequestService) updateAsAdmin(ctx context.Context, id uint, p *RequestPayload) error {
	var req models.MaintenanceRequest
	if err := s.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotFound
		}
		return err
	}

	changes := map[string]interface{}{}

	if p.MaintenanceFor.Set && !p.MaintenanceFor.Null {
		f := strings.TrimSpace(p.MaintenanceFor.Val)
		if !models.IsValidMaintenanceFor(f) {
			return response.NewBadRequest("maintenance_for must be equipment or work_center")
		}
		req.MaintenanceFor = f
		changes["maintenance_for"] = f
	}

	if p.EquipmentID.Set || p.WorkCenter.Set {
		if err := s.applyTarget(&req, p); err != nil {
			return err
		}
	}
	if err := s.requireTarget(ctx, &req); err != nil {
		return err
	}
	changes["equipment_id"] = req.EquipmentID
	changes["work_center"] = req.WorkCenter

	if p.TeamName.Set {
		changes["team_name"] = trimmedPtr(p.TeamName)
	}
	if p.RequestedByID.Cleared() {
		changes["requested_by_id"] = nil
	} else if p.RequestedByID.Set {
		uid, err := userRef(ctx, s.db, p.RequestedByID, "requested_by_id", "")
		if err != nil {
			return err
		}
		changes["requested_by_id"] = uid
	}
	if p.AssignedTechnicianID.Cleared() {
		changes["assigned_technician_id"] = nil
	} else if p.AssignedTechnicianID.Set {
		uid, err := userRef(ctx, s.db, p.AssignedTechnicianID, "assigned_technician_id", models.RoleTechnician)
		if err != nil {
			return err
		}
		changes["assigned_technician_id"] = uid
	}

	if p.MaintenanceType.Has() {
		t := strings.TrimSpace(p.MaintenanceType.Val)
		if !models.IsValidMaintenanceType(t) {
			return response.NewBadRequest("maintenance_type must be Corrective or Preventive")
		}
		changes["maintenance_type"] = t
	}
	if p.Priority.Set && !p.Priority.Null {
		priority, err := parsePriority(p.Priority)
		if err != nil {
			return err
		}
		changes["priority"] = priority
	}
	if p.Status.Has() {
		status := strings.TrimSpace(p.Status.Val)
		if !models.IsValidRequestStatus(status) {
			return response.NewBadRequest("status must be one of " + strings.Join(models.RequestStatuses, ", "))
		}
		changes["status"] = status
	}
	if p.Notes.Set {
		changes["notes"] = p.Notes.Ptr()
	}
	if p.Instructions.Set {
		changes["instructions"] = p.Instructions.Ptr()
	}

	start, end := req.ScheduledStart, req.ScheduledEnd
	if p.ScheduledStart.Set {
		v, err := timePtr(p.ScheduledStart, "scheduled_start")
		if err != nil {
			return err
		}
		start = v
		changes["scheduled_start"] = v
	}
	if p.ScheduledEnd.Set {
		v, err := timePtr(p.ScheduledEnd, "scheduled_end")
		if err != nil {
			return err
		}
		end = v
		changes["scheduled_end"] = v
	}
	if err := checkSchedule(start, end); err != nil {
		return err
	}

	changes["updated_at"] = time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.MaintenanceRequest{}).Where("id = ?", id).Updates(changes).Error
}

// Delete removes request id. Only reachable by admins.
func (s *RequestService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.MaintenanceRequest{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	s.notifier.NotifyChange()
	return nil
}

// applyTarget copies equipment_id and work_center from p onto req.
func (s *RequestService) applyTarget(req *models.MaintenanceRequest, p *RequestPayload) error {
	if p.EquipmentID.Cleared() {
		req.EquipmentID = nil
	} else if p.EquipmentID.Set {
		id, ok := p.EquipmentID.Val.ID()
		if p.EquipmentID.Invalid || !ok {
			return response.NewBadRequest("equipment_id must be a valid id")
		}
		req.EquipmentID = &id
	}
	if p.WorkCenter.Set {
		req.WorkCenter = trimmedPtr(p.WorkCenter)
	}
	return nil
}

// requireTarget enforces that exactly one of equipment_id and work_center is set,
// matching maintenance_for.
func (s *RequestService) requireTarget(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.MaintenanceFor == models.MaintenanceForWorkCenter {
		if req.WorkCenter == nil {
			return response.NewBadRequest("work_center is required")
		}
		req.EquipmentID = nil
		return nil
	}

	if req.EquipmentID == nil {
		return response.NewBadRequest("equipment_id is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Equipment{}).Where("id = ?", *req.EquipmentID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewBadRequest("equipment_id does not reference existing equipment")
	}
	req.WorkCenter = nil
	return nil
}

// userRef validates a user id field, optionally requiring a role.
func userRef(ctx context.Context, db *gorm.DB, v optional.Value[optional.Number], field, role string) (uint, error) {
	id, ok := v.Val.ID()
	if v.Invalid || !ok {
		return 0, response.NewBadRequest(field + " must be a valid user id")
	}
	var user models.User
	if err := db.WithContext(ctx).Select("id", "role").Take(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, response.NewBadRequest(field + " does not reference an existing user")
		}
		return 0, err
	}
	if role != "" && user.Role != role {
		return 0, response.NewBadRequest(field + " must reference a " + role)
	}
	return id, nil
}

func parsePriority(v optional.Value[optional.Number]) (int, error) {
	if v.Invalid || v.Val.Int() < models.MinPriority || v.Val.Int() > models.MaxPriority {
		return 0, response.NewBadRequest("priority must be 1..5")
	}
	return v.Val.Int(), nil
}

func checkSchedule(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return response.NewBadRequest("scheduled_end must not be before scheduled_start")
	}
	return nil
}

func timePtr(v optional.Value[optional.Time], field string) (*time.Time, error) {
	if v.Invalid {
		return nil, response.NewBadRequest(field + " must be a valid timestamp")
	}
	if !v.Has() {
		return nil, nil
	}
	t := v.Val.Time.UTC()
	return &t, nil
}

// trimmedPtr returns the trimmed string, nil when absent or blank.
func trimmedPtr(v optional.Value[string]) *string {
	raw, ok := v.Get()
	if !ok {
		return nil
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}

