package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maintrack/backend/internal/models"
)

func init() {
	SetJWTSecret("test-secret-key-for-testing")
}

func testUser(id uint, role string) *models.User {
	return &models.User{ID: id, FullName: "Test User", Email: "test@example.com", Role: role}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(testUser(1, "admin"), 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if len(token) < 50 {
		t.Errorf("token seems too short: %d chars", len(token))
	}
}

func TestGenerateToken_DifferentTokens(t *testing.T) {
	token1, _ := GenerateToken(testUser(1, "admin"), 24)
	token2, _ := GenerateToken(testUser(2, "employee"), 24)

	if token1 == token2 {
		t.Error("different users should produce different tokens")
	}
}

func TestParseToken(t *testing.T) {
	user := &models.User{ID: 42, FullName: "Dana Reyes", Email: "dana@example.com", Role: "technician"}
	token, _ := GenerateToken(user, 24)

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Errorf("UserID() = %d, %v, expected 42", id, err)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, expected %q", claims.Subject, "42")
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, expected %q", claims.Email, user.Email)
	}
	if claims.FullName != user.FullName {
		t.Errorf("FullName = %q, expected %q", claims.FullName, user.FullName)
	}
	if claims.Role != "technician" {
		t.Errorf("Role = %q, expected %q", claims.Role, "technician")
	}
}

func TestParseToken_NormalizesLegacyRole(t *testing.T) {
	token, _ := GenerateToken(testUser(3, "portal_user"), 24)

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Role != "employee" {
		t.Errorf("Role = %q, expected %q", claims.Role, "employee")
	}
}

func TestParseToken_LegacyRoleSignedElsewhere(t *testing.T) {
	claims := Claims{
		Role: "portal_user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-testing"))

	parsed, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if parsed.Role != "employee" {
		t.Errorf("Role = %q, expected %q", parsed.Role, "employee")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	invalidTokens := []string{
		"",
		"invalid",
		"not.a.token",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, token := range invalidTokens {
		if _, err := ParseToken(token); err == nil {
			t.Errorf("ParseToken(%q) should return error", token)
		}
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	SetJWTSecret("original-secret")
	token, _ := GenerateToken(testUser(1, "admin"), 24)

	SetJWTSecret("different-secret")
	_, err := ParseToken(token)

	SetJWTSecret("test-secret-key-for-testing")

	if err == nil {
		t.Error("ParseToken should fail with wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-testing"))

	if _, err := ParseToken(token); err == nil {
		t.Error("ParseToken should reject an expired token")
	}
}

func TestParseToken_MissingSubject(t *testing.T) {
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-testing"))

	if _, err := ParseToken(token); err == nil {
		t.Error("ParseToken should reject a token without subject")
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-key-for-testing"))

	if _, err := ParseToken(token); err == nil {
		t.Error("ParseToken should only accept HS256")
	}
}

func TestGenerateToken_Expiration(t *testing.T) {
	token, _ := GenerateToken(testUser(1, "admin"), 168)
	claims, _ := ParseToken(token)

	expectedExpiry := time.Now().Add(168 * time.Hour)
	diff := claims.ExpiresAt.Time.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiration time is off by more than 1 minute: %v", diff)
	}
}
