package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account of any role. Role is normalized on every read.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:200;not null" json:"full_name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:50;not null;index" json:"role"`
	Department   *string   `gorm:"size:200" json:"department"`
	Company      *string   `gorm:"size:200" json:"company"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) AfterFind(tx *gorm.DB) error {
	u.Role = NormalizeRole(u.Role)
	return nil
}
