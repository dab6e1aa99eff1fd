package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/middleware"
	"github.com/maintrack/backend/internal/services"
	"github.com/maintrack/backend/pkg/response"
)

// bindJSON decodes the request body into dst. An empty body decodes as {}.
// It writes the error response and returns false on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	var raw []byte
	if c.Request.Body != nil {
		var err error
		raw, err = io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
				return false
			}
			response.BadRequest(c, "Invalid JSON body")
			return false
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return false
	}
	return true
}

// parseID reads the :id path parameter. It writes a 400 and returns false when it is not a positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func viewer(c *gin.Context) services.Viewer {
	return services.Viewer{ID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}
