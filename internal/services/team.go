package services

import (
	"context"
	"errors"
	"strings"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/optional"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

type CreateTeamInput struct {
	Name         optional.Value[string]          `json:"name"`
	Company      optional.Value[string]          `json:"company"`
	MemberUserID optional.Value[optional.Number] `json:"member_user_id"`
}

type AddMemberInput struct {
	UserID optional.Value[optional.Number] `json:"user_id"`
}

type TeamService struct {
	db         *gorm.DB
	visibility *Visibility
}

func NewTeamService(db *gorm.DB, visibility *Visibility) *TeamService {
	return &TeamService{db: db, visibility: visibility}
}

// List returns every team for admins and the viewer's own teams for technicians.
func (s *TeamService) List(ctx context.Context, viewer Viewer) ([]models.Team, error) {
	var teams []models.Team
	switch viewer.Role {
	case models.RoleAdmin:
		if err := s.db.WithContext(ctx).Order("id ASC").Find(&teams).Error; err != nil {
			return nil, err
		}
	case models.RoleTechnician:
		var err error
		if teams, err = s.visibility.TeamsOf(ctx, viewer.ID); err != nil {
			return nil, err
		}
	default:
		return nil, errForbidden
	}
	if err := s.attachMembers(ctx, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// attachMembers fills Members from the join table, falling back to the legacy
// single-member column for teams with no join rows.
func (s *TeamService) attachMembers(ctx context.Context, teams []models.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]uint, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}

	type memberRow struct {
		TeamID   uint
		ID       uint
		FullName string
		Email    string
	}
	var rows []memberRow
	err := s.db.WithContext(ctx).
		Table("team_members").
		Select("team_members.team_id, users.id, users.full_name, users.email").
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id IN ?", ids).
		Order("team_members.id ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	byTeam := make(map[uint][]models.TeamMember)
	for _, r := range rows {
		byTeam[r.TeamID] = append(byTeam[r.TeamID], models.TeamMember{ID: r.ID, FullName: r.FullName, Email: r.Email})
	}

	var legacyIDs []uint
	for _, t := range teams {
		if len(byTeam[t.ID]) == 0 && t.MemberUserID != nil {
			legacyIDs = append(legacyIDs, *t.MemberUserID)
		}
	}
	legacy := make(map[uint]models.TeamMember)
	if len(legacyIDs) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", legacyIDs).Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			legacy[u.ID] = models.TeamMember{ID: u.ID, FullName: u.FullName, Email: u.Email}
		}
	}

	for i := range teams {
		members := byTeam[teams[i].ID]
		if len(members) == 0 && teams[i].MemberUserID != nil {
			if m, ok := legacy[*teams[i].MemberUserID]; ok {
				members = []models.TeamMember{m}
			}
		}
		if members == nil {
			members = []models.TeamMember{}
		}
		teams[i].Members = members
	}
	return nil
}

// Create inserts a team and, when member_user_id is given, its first membership.
func (s *TeamService) Create(ctx context.Context, in *CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(in.Name.Val)
	if !in.Name.Has() || name == "" {
		return nil, response.NewBadRequest("Team name is required")
	}

	team := models.Team{Name: name, Company: trimmedPtr(in.Company)}
	if in.MemberUserID.Set && !in.MemberUserID.Null {
		id, err := userRef(ctx, s.db, in.MemberUserID, "member_user_id", models.RoleTechnician)
		if err != nil {
			return nil, err
		}
		team.MemberUserID = &id
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Team{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("Team name already exists")
		}
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		if team.MemberUserID != nil {
			return tx.Create(&models.TeamMembership{TeamID: team.ID, UserID: *team.MemberUserID}).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("Team name already exists")
		}
		return nil, err
	}

	teams := []models.Team{team}
	if err := s.attachMembers(ctx, teams); err != nil {
		return nil, err
	}
	return &teams[0], nil
}

// AddMember adds a technician to team teamID. A legacy single member is copied
// into the join table first so it stays listed once join rows exist.
func (s *TeamService) AddMember(ctx context.Context, teamID uint, in *AddMemberInput) (*models.Team, error) {
	if !in.UserID.Set || in.UserID.Null {
		return nil, response.NewBadRequest("user_id is required")
	}

	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Team not found")
		}
		return nil, err
	}
	userID, err := userRef(ctx, s.db, in.UserID, "user_id", models.RoleTechnician)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.TeamMembership
		if err := tx.Where("team_id = ?", teamID).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			if r.UserID == userID {
				return response.NewConflict("User is already a member of this team")
			}
		}
		if len(rows) == 0 && team.MemberUserID != nil && *team.MemberUserID != userID {
			if err := tx.Create(&models.TeamMembership{TeamID: teamID, UserID: *team.MemberUserID}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.TeamMembership{TeamID: teamID, UserID: userID}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("User is already a member of this team")
		}
		return nil, err
	}

	teams := []models.Team{team}
	if err := s.attachMembers(ctx, teams); err != nil {
		return nil, err
	}
	return &teams[0], nil
}
