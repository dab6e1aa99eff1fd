package models

import "time"

// Team groups technicians. MemberUserID is the single-member column that predates
// the team_members join table; both are read when resolving membership.
type Team struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Company      *string      `gorm:"size:200" json:"company"`
	MemberUserID *uint        `gorm:"index" json:"member_user_id"`
	CreatedAt    time.Time    `json:"created_at"`
	Members      []TeamMember `gorm:"-" json:"members"`
}

func (Team) TableName() string { return "teams" }

// TeamMembership is one row of the join table.
type TeamMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"not null;uniqueIndex:idx_team_members_team_user" json:"team_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_team_members_team_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMembership) TableName() string { return "team_members" }

// TeamMember is the member summary embedded in team listings.
type TeamMember struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}
