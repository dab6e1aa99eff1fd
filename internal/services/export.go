package services

import (
	"context"
	"time"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/logger"
	"github.com/maintrack/backend/pkg/response"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Requests"

var exportHeaders = []interface{}{
	"ID", "Maintenance For", "Equipment", "Work Center", "Team", "Requested By",
	"Technician", "Type", "Priority", "Status", "Scheduled Start", "Scheduled End",
	"Notes", "Instructions", "Created At",
}

// ExportService renders request listings as an xlsx workbook.
type ExportService struct {
	requests *RequestService
}

func NewExportService(requests *RequestService) *ExportService {
	return &ExportService{requests: requests}
}

// Workbook lists the requests visible to viewer as a workbook. The caller closes it.
func (s *ExportService) Workbook(ctx context.Context, viewer Viewer, filter RequestFilter) (*excelize.File, error) {
	rows, err := s.requests.List(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	f, err := buildRequestWorkbook(rows)
	if err != nil {
		logger.Error().Err(err).Int("rows", len(rows)).Msg("failed to build request workbook")
		return nil, response.NewServerError("Failed to build spreadsheet")
	}
	return f, nil
}

// buildRequestWorkbook lays rows out one per line under a bold header.
func buildRequestWorkbook(rows []models.MaintenanceRequestView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeaders); err != nil {
		return nil, err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "O1", style); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		line := []interface{}{
			r.ID, r.MaintenanceFor, str(r.EquipmentName), str(r.WorkCenter), str(r.TeamName),
			str(r.RequestedByName), str(r.TechnicianName), r.MaintenanceType, r.Priority, r.Status,
			stamp(r.ScheduledStart), stamp(r.ScheduledEnd), str(r.Notes), str(r.Instructions),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(exportSheet, cell, &line); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(exportSheet, "B", "G", 20)
	_ = f.SetColWidth(exportSheet, "K", "L", 22)
	_ = f.SetColWidth(exportSheet, "M", "N", 40)
	_ = f.SetColWidth(exportSheet, "O", "O", 22)
	return f, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
