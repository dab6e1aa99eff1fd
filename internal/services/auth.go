package services

import (
	"context"
	"errors"
	"strings"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/utils"
	"github.com/maintrack/backend/pkg/logger"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

const weakPasswordMessage = "Password must be 8+ chars with 1 uppercase and 1 special character"

type SignupRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	db          *gorm.DB
	expireHours int
}

func NewAuthService(db *gorm.DB, expireHours int) *AuthService {
	return &AuthService{db: db, expireHours: expireHours}
}

// Signup registers an employee. A role in the body is never honored.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*LoginResponse, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := utils.NormalizeEmail(req.Email)
	if fullName == "" {
		return nil, response.NewBadRequest("Full name is required")
	}
	if !utils.ValidEmail(email) {
		return nil, response.NewBadRequest("Invalid email")
	}
	if !utils.StrongPassword(req.Password) {
		return nil, response.NewBadRequest(weakPasswordMessage)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("Email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleEmployee,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("Email already registered")
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if !utils.ValidEmail(email) {
		return nil, response.NewBadRequest("Invalid email")
	}
	if req.Password == "" {
		return nil, response.NewBadRequest("Password is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("Invalid credentials")
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, response.NewUnauthorized("Invalid credentials")
	}
	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*LoginResponse, error) {
	token, err := utils.GenerateToken(user, s.expireHours)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user}, nil
}

// EnsureAdmin creates the admin account, or promotes an existing account with that
// email. The password of an existing account is left alone.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*models.User, bool, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidEmail(email) {
		return nil, false, response.NewBadRequest("Invalid email")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Role != models.RoleAdmin {
			if err := s.db.WithContext(ctx).Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
				return nil, false, err
			}
			user.Role = models.RoleAdmin
			logger.Info().Uint("user_id", user.ID).Msg("promoted existing user to admin")
		}
		return &user, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if !utils.StrongPassword(password) {
		return nil, false, response.NewBadRequest(weakPasswordMessage)
	}
	if strings.TrimSpace(fullName) == "" {
		fullName = "Administrator"
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user = models.User{
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}
