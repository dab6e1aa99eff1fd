package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

// RequireDB answers 503 on data endpoints when the server started without a database.
func RequireDB(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			response.Abort(c, response.NewUnavailable("Database not configured"))
			return
		}
		c.Next()
	}
}

// BodyLimit caps request bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
