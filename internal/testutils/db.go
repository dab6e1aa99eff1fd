// Package testutils provides an in-memory database and fixture builders for tests.
package testutils

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// DefaultPassword satisfies the signup password rules.
const DefaultPassword = "Secret!23"

var (
	seq          atomic.Int64
	hashOnce     sync.Once
	passwordHash string
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// The pool is pinned to one connection because each SQLite memory connection is its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := models.Open("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func next() int64 { return seq.Add(1) }

func hash(t *testing.T) string {
	hashOnce.Do(func() {
		h, err := utils.HashPassword(DefaultPassword)
		require.NoError(t, err)
		passwordHash = h
	})
	return passwordHash
}

// CreateUser inserts a user with the given role and DefaultPassword.
func CreateUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	n := next()
	u := &models.User{
		FullName:     fmt.Sprintf("%s %d", role, n),
		Email:        fmt.Sprintf("%s%d@example.com", role, n),
		PasswordHash: hash(t),
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateUserWithID inserts a user with a fixed primary key.
func CreateUserWithID(t *testing.T, db *gorm.DB, id uint, role string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           id,
		FullName:     fmt.Sprintf("%s %d", role, id),
		Email:        fmt.Sprintf("%s-id%d@example.com", role, id),
		PasswordHash: hash(t),
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateEquipment inserts an equipment row assigned to technicianID.
func CreateEquipment(t *testing.T, db *gorm.DB, technicianID uint, status string) *models.Equipment {
	t.Helper()
	n := next()
	e := &models.Equipment{
		Name:         fmt.Sprintf("Pump %d", n),
		SerialNumber: fmt.Sprintf("SN-%d", n),
		Status:       status,
		TechnicianID: &technicianID,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

// CreateTeam inserts a team with members in the join table.
func CreateTeam(t *testing.T, db *gorm.DB, name string, memberIDs ...uint) *models.Team {
	t.Helper()
	team := &models.Team{Name: name}
	require.NoError(t, db.Create(team).Error)
	for _, id := range memberIDs {
		require.NoError(t, db.Create(&models.TeamMembership{TeamID: team.ID, UserID: id}).Error)
	}
	return team
}

// CreateLegacyTeam inserts a team whose only member lives in the legacy column.
func CreateLegacyTeam(t *testing.T, db *gorm.DB, name string, memberID uint) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, MemberUserID: &memberID}
	require.NoError(t, db.Create(team).Error)
	return team
}

// RequestOption customizes CreateRequest.
type RequestOption func(*models.MaintenanceRequest)

func WithStatus(status string) RequestOption {
	return func(r *models.MaintenanceRequest) { r.Status = status }
}

func WithTechnician(id uint) RequestOption {
	return func(r *models.MaintenanceRequest) { r.AssignedTechnicianID = &id }
}

func WithTeam(name string) RequestOption {
	return func(r *models.MaintenanceRequest) { r.TeamName = &name }
}

func WithRequester(id uint) RequestOption {
	return func(r *models.MaintenanceRequest) { r.RequestedByID = &id }
}

func WithEquipment(id uint) RequestOption {
	return func(r *models.MaintenanceRequest) { r.EquipmentID = &id }
}

func WithScheduledStart(ts time.Time) RequestOption {
	return func(r *models.MaintenanceRequest) { r.ScheduledStart = &ts }
}

// CreateRequest inserts a work-center request in New Request status unless options say otherwise.
func CreateRequest(t *testing.T, db *gorm.DB, opts ...RequestOption) *models.MaintenanceRequest {
	t.Helper()
	center := fmt.Sprintf("Line %d", next())
	r := &models.MaintenanceRequest{
		MaintenanceFor:  models.MaintenanceForWorkCenter,
		WorkCenter:      &center,
		MaintenanceType: models.TypeCorrective,
		Priority:        models.DefaultPriority,
		Status:          models.StatusNewRequest,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.EquipmentID != nil {
		r.MaintenanceFor = models.MaintenanceForEquipment
		r.WorkCenter = nil
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
