package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/logger"
)

const maxAuditBody = 2000

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"secret":        {},
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.SystemLog) error
}

// AuditLog records admin writes (POST, PUT, PATCH, DELETE) after the handler ran.
// It must run after AuthRequired.
func AuditLog(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut &&
			method != http.MethodPatch && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				// keep the read error (e.g. body too large) visible to the handler
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), errReader{err}))
			} else {
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
				body = maskBody(raw)
			}
		}

		c.Next()

		if GetRole(c) != models.RoleAdmin {
			return
		}

		userID := GetUserID(c)
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		extra, _ := json.Marshal(map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   body,
		})

		level := "info"
		if status >= 400 {
			level = "warning"
		}

		entry := &models.SystemLog{
			Level:     level,
			Module:    module,
			Action:    action,
			Message:   fmt.Sprintf("%s %s %s -> %d", GetEmail(c), method, c.Request.URL.Path, status),
			UserID:    &userID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra:     string(extra),
			CreatedAt: time.Now().UTC(),
		}
		if err := recorder.Record(c.Request.Context(), entry); err != nil {
			logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("failed to write audit log")
		}
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// parseRouteInfo derives module and action from a route pattern,
// e.g. "/api/requests/:id" with PUT gives ("Requests", "Update").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	first := strings.SplitN(path, "/", 2)[0]
	if first == "" {
		first = "unknown"
	}

	words := strings.Fields(strings.ReplaceAll(first, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	module = strings.Join(words, " ")

	switch method {
	case http.MethodPost:
		action = "Create"
	case http.MethodPut, http.MethodPatch:
		action = "Update"
	case http.MethodDelete:
		action = "Delete"
	default:
		action = method
	}
	return module, action
}

// maskBody blanks sensitive JSON fields and truncates the result.
func maskBody(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}

	var fields map[string]interface{}
	out := string(raw)
	if err := json.Unmarshal(raw, &fields); err == nil {
		for k := range fields {
			if _, ok := sensitiveKeys[strings.ToLower(k)]; ok {
				fields[k] = "***"
			}
		}
		if b, err := json.Marshal(fields); err == nil {
			out = string(b)
		}
	} else {
		out = "[unparseable body]"
	}

	if len(out) > maxAuditBody {
		out = out[:maxAuditBody] + "...[truncated]"
	}
	return out
}
