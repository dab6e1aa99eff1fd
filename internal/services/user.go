package services

import (
	"context"
	"errors"
	"strings"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

type UserListRequest struct {
	Role string `form:"role"`
	Q    string `form:"q"`
}

type UpdateRoleInput struct {
	Role string `json:"role"`
}

type UserService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewUserService(db *gorm.DB, notifier Notifier) *UserService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &UserService{db: db, notifier: notifier}
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) ([]models.User, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if role := strings.TrimSpace(req.Role); role != "" {
		query = query.Where("role IN ?", models.RoleAliases(role))
	}
	if q := strings.ToLower(strings.TrimSpace(req.Q)); q != "" {
		like := "%" + q + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	users := make([]models.User, 0)
	err := query.Order("id ASC").Find(&users).Error
	return users, err
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateRole sets the role of user targetID. Admins cannot change their own role.
// The technician count feeds the dashboard, so a change triggers a broadcast.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID uint, role string) (*models.User, error) {
	role = models.NormalizeRole(role)
	if !models.IsValidRole(role) {
		return nil, response.NewBadRequest("Invalid role")
	}
	if actorID == targetID {
		return nil, response.NewBadRequest("You cannot change your own role")
	}

	user, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	s.notifier.NotifyChange()
	return user, nil
}
