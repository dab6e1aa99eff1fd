package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memberIDs(team models.Team) []uint {
	ids := make([]uint, 0, len(team.Members))
	for _, m := range team.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestTeamCreate(t *testing.T) {
	db := testutils.NewDB(t)
	tech := testutils.CreateUser(t, db, models.RoleTechnician)
	svc := NewTeamService(db, NewVisibility(db))
	ctx := context.Background()

	team, err := svc.Create(ctx, decode[CreateTeamInput](t, fmt.Sprintf(`{"name":"Mechanics","member_user_id":%d}`, tech.ID)))
	require.NoError(t, err)
	assert.Equal(t, "Mechanics", team.Name)
	require.NotNil(t, team.MemberUserID)
	assert.Equal(t, []uint{tech.ID}, memberIDs(*team))

	var rows int64
	require.NoError(t, db.Model(&models.TeamMembership{}).Where("team_id = ?", team.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err = svc.Create(ctx, decode[CreateTeamInput](t, `{"name":"Mechanics"}`))
	requireStatus(t, err, 409)

	_, err = svc.Create(ctx, decode[CreateTeamInput](t, `{"name":"  "}`))
	requireStatus(t, err, 400)

	empty, err := svc.Create(ctx, decode[CreateTeamInput](t, `{"name":"Electrics"}`))
	require.NoError(t, err)
	assert.NotNil(t, empty.Members)
	assert.Empty(t, empty.Members)
}

func TestTeamCreate_MemberMustBeTechnician(t *testing.T) {
	db := testutils.NewDB(t)
	emp := testutils.CreateUser(t, db, models.RoleEmployee)
	svc := NewTeamService(db, NewVisibility(db))

	_, err := svc.Create(context.Background(), decode[CreateTeamInput](t, fmt.Sprintf(`{"name":"X","member_user_id":%d}`, emp.ID)))
	requireStatus(t, err, 400)

	var n int64
	require.NoError(t, db.Model(&models.Team{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTeamAddMember(t *testing.T) {
	db := testutils.NewDB(t)
	t1 := testutils.CreateUser(t, db, models.RoleTechnician)
	t2 := testutils.CreateUser(t, db, models.RoleTechnician)
	emp := testutils.CreateUser(t, db, models.RoleEmployee)
	team := testutils.CreateTeam(t, db, "Mechanics", t1.ID)
	svc := NewTeamService(db, NewVisibility(db))
	ctx := context.Background()

	got, err := svc.AddMember(ctx, team.ID, decode[AddMemberInput](t, fmt.Sprintf(`{"user_id":"%d"}`, t2.ID)))
	require.NoError(t, err)
	assert.Equal(t, []uint{t1.ID, t2.ID}, memberIDs(*got))

	_, err = svc.AddMember(ctx, team.ID, decode[AddMemberInput](t, fmt.Sprintf(`{"user_id":%d}`, t2.ID)))
	requireStatus(t, err, 409)

	_, err = svc.AddMember(ctx, team.ID, decode[AddMemberInput](t, fmt.Sprintf(`{"user_id":%d}`, emp.ID)))
	requireStatus(t, err, 400)

	_, err = svc.AddMember(ctx, 999, decode[AddMemberInput](t, fmt.Sprintf(`{"user_id":%d}`, t2.ID)))
	requireStatus(t, err, 404)

	_, err = svc.AddMember(ctx, team.ID, decode[AddMemberInput](t, `{}`))
	requireStatus(t, err, 400)
}

func TestTeamAddMember_KeepsLegacyMember(t *testing.T) {
	db := testutils.NewDB(t)
	legacy := testutils.CreateUser(t, db, models.RoleTechnician)
	added := testutils.CreateUser(t, db, models.RoleTechnician)
	team := testutils.CreateLegacyTeam(t, db, "Electrics", legacy.ID)
	svc := NewTeamService(db, NewVisibility(db))

	got, err := svc.AddMember(context.Background(), team.ID, decode[AddMemberInput](t, fmt.Sprintf(`{"user_id":%d}`, added.ID)))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{legacy.ID, added.ID}, memberIDs(*got))
}

func TestTeamList_Scoped(t *testing.T) {
	db := testutils.NewDB(t)
	tech := testutils.CreateUser(t, db, models.RoleTechnician)
	other := testutils.CreateUser(t, db, models.RoleTechnician)
	emp := testutils.CreateUser(t, db, models.RoleEmployee)
	testutils.CreateTeam(t, db, "Mechanics", tech.ID, other.ID)
	testutils.CreateLegacyTeam(t, db, "Electrics", tech.ID)
	testutils.CreateTeam(t, db, "Plumbing", other.ID)
	svc := NewTeamService(db, NewVisibility(db))
	ctx := context.Background()

	all, err := svc.List(ctx, AdminViewer)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.List(ctx, viewerOf(tech))
	require.NoError(t, err)
	names := make([]string, 0, len(mine))
	for _, team := range mine {
		names = append(names, team.Name)
		if team.Name == "Electrics" {
			assert.Equal(t, []uint{tech.ID}, memberIDs(team), "legacy member is listed")
		}
		if team.Name == "Mechanics" {
			assert.ElementsMatch(t, []uint{tech.ID, other.ID}, memberIDs(team))
		}
	}
	assert.ElementsMatch(t, []string{"Mechanics", "Electrics"}, names)

	_, err = svc.List(ctx, viewerOf(emp))
	requireStatus(t, err, 403)
}
