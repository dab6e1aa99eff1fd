package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/pkg/optional"
	"github.com/maintrack/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RequestHandler struct {
	requestService *services.RequestService
	exportService  *services.ExportService
}

func NewRequestHandler(requestService *services.RequestService, exportService *services.ExportService) *RequestHandler {
	return &RequestHandler{requestService: requestService, exportService: exportService}
}

// parseRange reads the from/to query parameters.
func parseRange(c *gin.Context) (services.RequestFilter, bool) {
	var filter services.RequestFilter
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(c.Query(p.key))
		if raw == "" {
			continue
		}
		t, err := optional.ParseTime(raw)
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("Invalid %s date", p.key))
			return filter, false
		}
		*p.dst = &t
	}
	return filter, true
}

// List returns the requests visible to the caller
// GET /api/requests
func (h *RequestHandler) List(c *gin.Context) {
	filter, ok := parseRange(c)
	if !ok {
		return
	}
	rows, err := h.requestService.List(c.Request.Context(), viewer(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /api/requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.requestService.Get(c.Request.Context(), viewer(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// POST /api/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var req services.RequestPayload
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.requestService.Create(c.Request.Context(), viewer(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// PUT /api/requests/:id
func (h *RequestHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.RequestPayload
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.requestService.Update(c.Request.Context(), viewer(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DELETE /api/requests/:id
func (h *RequestHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.requestService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Export downloads the request list as a spreadsheet
// GET /api/requests/export
func (h *RequestHandler) Export(c *gin.Context) {
	filter, ok := parseRange(c)
	if !ok {
		return
	}
	f, err := h.exportService.Workbook(c.Request.Context(), viewer(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	fileName := fmt.Sprintf("maintenance_requests_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
