package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/pkg/response"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// List returns all teams for admins and the caller's own teams for technicians
// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teamService.List(c.Request.Context(), viewer(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

// Create adds a team
// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req services.CreateTeamInput
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// AddMember adds a technician to a team
// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.AddMemberInput
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.AddMember(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}
