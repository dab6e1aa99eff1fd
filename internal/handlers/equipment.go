package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/pkg/response"
)

type EquipmentHandler struct {
	equipmentService *services.EquipmentService
}

func NewEquipmentHandler(equipmentService *services.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipmentService: equipmentService}
}

// List returns equipment, optionally filtered by q
// GET /api/equipment
func (h *EquipmentHandler) List(c *gin.Context) {
	items, err := h.equipmentService.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /api/equipment/:id
func (h *EquipmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.equipmentService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// POST /api/equipment
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req services.EquipmentPayload
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.equipmentService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// PUT /api/equipment/:id
func (h *EquipmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.EquipmentPayload
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.equipmentService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DELETE /api/equipment/:id
func (h *EquipmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.equipmentService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
