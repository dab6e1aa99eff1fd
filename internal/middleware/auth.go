package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/utils"
	"github.com/maintrack/backend/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextFullName = "full_name"
	ContextRole     = "role"
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthRequired verifies the bearer token and stores the caller identity on the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Abort(c, response.NewUnauthorized("Missing token"))
			return
		}

		token, ok := BearerToken(c)
		if !ok {
			response.Abort(c, response.NewUnauthorized("Invalid authorization header"))
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			response.Abort(c, response.NewUnauthorized("Invalid or expired token"))
			return
		}
		userID, _ := claims.UserID()

		c.Set(ContextUserID, userID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextFullName, claims.FullName)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RequireRoles lets the request through only when the caller's role is in roles.
// It must run after AuthRequired.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[models.NormalizeRole(r)] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[GetRole(c)]; !ok {
			response.Abort(c, response.NewForbidden("Forbidden"))
			return
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
