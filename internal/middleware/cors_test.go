package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func corsRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(NewOriginPolicy(origins)))
	router.GET("/api/equipment", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.POST("/api/requests", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return router
}

func getWithOrigin(router *gin.Engine, origin string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/equipment", nil)
	req.Header.Set("Origin", origin)
	router.ServeHTTP(w, req)
	return w
}

func TestOriginPolicy_Allowed(t *testing.T) {
	policy := NewOriginPolicy([]string{"https://maint.example.com/"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://maint.example.com", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"http://localhost", true},
		{"https://evil.example.com", false},
		{"http://localhost.evil.com", false},
		{"file://localhost", false},
		{"", true},
	}

	for _, tt := range tests {
		if got := policy.Allowed(tt.origin); got != tt.want {
			t.Errorf("Allowed(%q) = %v, expected %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginPolicy_Wildcard(t *testing.T) {
	policy := NewOriginPolicy([]string{"*"})
	if !policy.Allowed("https://anything.example.org") {
		t.Error("wildcard policy should allow any origin")
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	w := getWithOrigin(corsRouter("https://maint.example.com"), "https://maint.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://maint.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials should be 'true', got %q", got)
	}
}

func TestCORS_AllowsLocalDevelopment(t *testing.T) {
	w := getWithOrigin(corsRouter(), "http://localhost:5173")

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header should be set for localhost")
	}
}

func TestCORS_RejectsUnknownOrigin(t *testing.T) {
	w := getWithOrigin(corsRouter("https://maint.example.com"), "https://evil.example.com")

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestCORS_PreflightRequest(t *testing.T) {
	router := corsRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("OPTIONS", "/api/requests", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Errorf("preflight request should return 200 or 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("Access-Control-Allow-Headers should be set")
	}
}
