package services

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/response"
	"gorm.io/gorm"
)

// Viewer is the authenticated caller a query is scoped to.
type Viewer struct {
	ID   uint
	Role string
}

func (v Viewer) IsAdmin() bool { return v.Role == models.RoleAdmin }

// AdminViewer is the unrestricted scope used for the broadcast snapshot.
var AdminViewer = Viewer{Role: models.RoleAdmin}

var errForbidden = response.NewForbidden("Forbidden")

// Visibility builds the per-role row filters for requests, equipment and teams.
type Visibility struct {
	db *gorm.DB
}

func NewVisibility(db *gorm.DB) *Visibility {
	return &Visibility{db: db}
}

// TeamsOf returns every team userID belongs to: the union of join-table rows and
// teams whose legacy single-member column names the user.
func (v *Visibility) TeamsOf(ctx context.Context, userID uint) ([]models.Team, error) {
	var joined []models.Team
	err := v.db.WithContext(ctx).
		Model(&models.Team{}).
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Find(&joined).Error
	if err != nil {
		return nil, err
	}

	var legacy []models.Team
	if err := v.db.WithContext(ctx).Where("member_user_id = ?", userID).Find(&legacy).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(joined)+len(legacy))
	teams := make([]models.Team, 0, len(joined)+len(legacy))
	for _, group := range [][]models.Team{joined, legacy} {
		for _, t := range group {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			teams = append(teams, t)
		}
	}
	return teams, nil
}

// TeamNames returns the names of the teams userID belongs to.
func (v *Visibility) TeamNames(ctx context.Context, userID uint) ([]string, error) {
	teams, err := v.TeamsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(teams))
	for _, t := range teams {
		names = append(names, t.Name)
	}
	return names, nil
}

// RequestPredicate returns the filter on maintenance_requests for viewer, nil when unrestricted.
func (v *Visibility) RequestPredicate(ctx context.Context, viewer Viewer) (sq.Sqlizer, error) {
	switch viewer.Role {
	case models.RoleAdmin:
		return nil, nil
	case models.RoleTechnician:
		names, err := v.TeamNames(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		return sq.Or{
			sq.Eq{"maintenance_requests.assigned_technician_id": viewer.ID},
			sq.Eq{"maintenance_requests.team_name": names},
		}, nil
	case models.RoleEmployee:
		return sq.Eq{"maintenance_requests.requested_by_id": viewer.ID}, nil
	default:
		return nil, errForbidden
	}
}

// EquipmentPredicate restricts a technician's dashboard to the equipment assigned to them.
func (v *Visibility) EquipmentPredicate(viewer Viewer) (sq.Sqlizer, error) {
	switch viewer.Role {
	case models.RoleAdmin:
		return nil, nil
	case models.RoleTechnician:
		return sq.Eq{"equipment.technician_id": viewer.ID}, nil
	default:
		return nil, errForbidden
	}
}

// Scope adds pred to query. A nil predicate leaves the query unrestricted.
func Scope(query *gorm.DB, pred sq.Sqlizer) (*gorm.DB, error) {
	if pred == nil {
		return query, nil
	}
	clause, args, err := pred.ToSql()
	if err != nil {
		return nil, err
	}
	return query.Where(clause, args...), nil
}
