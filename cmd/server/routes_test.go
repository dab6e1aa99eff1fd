package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/maintrack/backend/internal/config"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/testutils"
	"github.com/maintrack/backend/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-route-testing")
}

type testApp struct {
	t   *testing.T
	db  *gorm.DB
	svc *appServices
	r   *gin.Engine
}

func newTestApp(t *testing.T, withDB bool) *testApp {
	t.Helper()
	var db *gorm.DB
	if withDB {
		db = testutils.NewDB(t)
	}
	svc := newAppServices(config.DefaultConfig(), db)
	t.Cleanup(func() {
		svc.broadcaster.Wait()
		svc.hub.Close()
		svc.authLimiter.Stop()
	})

	r := gin.New()
	registerRoutes(r, svc)
	return &testApp{t: t, db: db, svc: svc, r: r}
}

func (a *testApp) token(u *models.User) string {
	a.t.Helper()
	tok, err := utils.GenerateToken(u, 1)
	require.NoError(a.t, err)
	return tok
}

func (a *testApp) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, w)["error"]
}

func TestSignupAlwaysCreatesEmployee(t *testing.T) {
	app := newTestApp(t, true)

	w := app.do(http.MethodPost, "/api/auth/signup", "",
		`{"full_name":"Eve","email":"Eve@Example.com","password":"Secret!23","role":"admin"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, w)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, models.RoleEmployee, body.User.Role)
	assert.Equal(t, "eve@example.com", body.User.Email)

	w = app.do(http.MethodPost, "/api/auth/signup", "",
		`{"full_name":"Eve","email":"eve@example.com","password":"Secret!23"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodPost, "/api/auth/login", "", `{"email":"eve@example.com","password":"Secret!23"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodPost, "/api/auth/login", "", `{"email":"eve@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", errorOf(t, w))
}

func TestEquipmentDownRaisesCriticalCount(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)
	testutils.CreateUserWithID(t, app.db, 7, models.RoleTechnician)
	tok := app.token(admin)

	w := app.do(http.MethodPost, "/api/equipment", tok,
		`{"name":"Lathe","serial_number":"L-1","technician_id":7}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[models.EquipmentView](t, w)
	assert.Equal(t, models.EquipmentActive, created.Status)
	require.NotNil(t, created.TechnicianName)

	w = app.do(http.MethodGet, "/api/stats", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	before := decodeBody[map[string]int](t, w)

	w = app.do(http.MethodPut, "/api/equipment/"+itoa(created.ID), tok, `{"status":"Down"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/stats", tok, "")
	after := decodeBody[map[string]int](t, w)
	assert.Equal(t, before["criticalEquipment"]+1, after["criticalEquipment"])
}

func TestEmployeeRequestIsForcedToSelf(t *testing.T) {
	app := newTestApp(t, true)
	emp := testutils.CreateUser(t, app.db, models.RoleEmployee)
	other := testutils.CreateUser(t, app.db, models.RoleEmployee)
	tech := testutils.CreateUser(t, app.db, models.RoleTechnician)
	eq := testutils.CreateEquipment(t, app.db, tech.ID, models.EquipmentActive)

	body := `{"equipment_id":` + itoa(eq.ID) +
		`,"requested_by_id":` + itoa(other.ID) +
		`,"assigned_technician_id":` + itoa(tech.ID) +
		`,"status":"Repaired","maintenance_type":"Preventive","priority":2}`
	w := app.do(http.MethodPost, "/api/requests", app.token(emp), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	got := decodeBody[models.MaintenanceRequestView](t, w)
	require.NotNil(t, got.RequestedByID)
	assert.Equal(t, emp.ID, *got.RequestedByID)
	assert.Nil(t, got.AssignedTechnicianID)
	assert.Equal(t, models.StatusNewRequest, got.Status)
	assert.Equal(t, models.MaintenanceForEquipment, got.MaintenanceFor)
}

func TestCreateRequestRequiresTarget(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)
	tok := app.token(admin)

	w := app.do(http.MethodPost, "/api/requests", tok, `{"maintenance_for":"equipment"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/requests", tok, `{"maintenance_for":"work_center","work_center":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/requests", tok,
		`{"maintenance_for":"work_center","work_center":"Paint line","maintenance_type":"Corrective","priority":9}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "priority must be 1..5", errorOf(t, w))

	w = app.do(http.MethodPost, "/api/requests", tok,
		`{"maintenance_for":"work_center","work_center":"Paint line","maintenance_type":"Corrective"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decodeBody[models.MaintenanceRequestView](t, w)
	require.NotNil(t, got.WorkCenter)
	assert.Equal(t, "Paint line", *got.WorkCenter)
	assert.Nil(t, got.EquipmentID)
	assert.Equal(t, models.DefaultPriority, got.Priority)

	var count int64
	require.NoError(t, app.db.Model(&models.MaintenanceRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTechnicianCannotUpdateUnrelatedRequest(t *testing.T) {
	app := newTestApp(t, true)
	tech := testutils.CreateUser(t, app.db, models.RoleTechnician)
	otherTech := testutils.CreateUser(t, app.db, models.RoleTechnician)
	unrelated := testutils.CreateRequest(t, app.db, testutils.WithTechnician(otherTech.ID))
	mine := testutils.CreateRequest(t, app.db, testutils.WithTechnician(tech.ID))
	tok := app.token(tech)

	w := app.do(http.MethodPut, "/api/requests/"+itoa(unrelated.ID), tok, `{"status":"Repaired"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var stored models.MaintenanceRequest
	require.NoError(t, app.db.First(&stored, unrelated.ID).Error)
	assert.Equal(t, models.StatusNewRequest, stored.Status)

	w = app.do(http.MethodPut, "/api/requests/"+itoa(mine.ID), tok, `{"status":"In Progress","priority":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody[models.MaintenanceRequestView](t, w)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, models.DefaultPriority, got.Priority)
}

func TestEmployeeSeesOnlyOwnRequests(t *testing.T) {
	app := newTestApp(t, true)
	emp := testutils.CreateUser(t, app.db, models.RoleEmployee)
	other := testutils.CreateUser(t, app.db, models.RoleEmployee)
	own := testutils.CreateRequest(t, app.db, testutils.WithRequester(emp.ID))
	foreign := testutils.CreateRequest(t, app.db, testutils.WithRequester(other.ID))
	tok := app.token(emp)

	w := app.do(http.MethodGet, "/api/requests", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]models.MaintenanceRequestView](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	w = app.do(http.MethodGet, "/api/requests/"+itoa(foreign.ID), tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodDelete, "/api/requests/"+itoa(own.ID), tok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRoleGates(t *testing.T) {
	app := newTestApp(t, true)
	emp := testutils.CreateUser(t, app.db, models.RoleEmployee)
	tech := testutils.CreateUser(t, app.db, models.RoleTechnician)

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/users", app.token(tech), "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/dashboard", app.token(emp), "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/teams", app.token(emp), "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPost, "/api/requests", app.token(tech), `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/requests", "", "").Code)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/api/dashboard", app.token(tech), "").Code)
}

func TestAdminChangesAreAudited(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)
	target := testutils.CreateUser(t, app.db, models.RoleEmployee)

	w := app.do(http.MethodPatch, "/api/users/"+itoa(target.ID)+"/role", app.token(admin), `{"role":"technician"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, app.db.Model(&models.SystemLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w = app.do(http.MethodGet, "/api/system-logs", app.token(admin), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestInvalidJSONBody(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)

	w := app.do(http.MethodPost, "/api/teams", app.token(admin), `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON body", errorOf(t, w))

	w = app.do(http.MethodGet, "/api/equipment/abc", app.token(admin), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	app := newTestApp(t, true)

	w := app.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, errorOf(t, w))

	w = app.do(http.MethodPatch, "/health", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestDegradedWithoutDatabase(t *testing.T) {
	app := newTestApp(t, false)
	tok := app.token(&models.User{ID: 1, Email: "a@example.com", Role: models.RoleAdmin})

	w := app.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decodeBody[map[string]interface{}](t, w)
	assert.Equal(t, "degraded", health["status"])

	w = app.do(http.MethodGet, "/api/requests", tok, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = app.do(http.MethodPost, "/api/auth/login", "", `{"email":"a@example.com","password":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExportRequests(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)
	testutils.CreateRequest(t, app.db)

	w := app.do(http.MethodGet, "/api/requests/export", app.token(admin), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = app.do(http.MethodGet, "/api/requests/export?from=yesterday", app.token(admin), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type frame struct {
	Type    string         `json:"type"`
	Payload map[string]int `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestWebSocketReceivesDashboardStats(t *testing.T) {
	app := newTestApp(t, true)
	admin := testutils.CreateUser(t, app.db, models.RoleAdmin)
	tech := testutils.CreateUser(t, app.db, models.RoleTechnician)
	eq := testutils.CreateEquipment(t, app.db, tech.ID, models.EquipmentActive)
	tok := app.token(admin)

	srv := httptest.NewServer(app.r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readFrame(t, conn)
	assert.Equal(t, "dashboard_stats", initial.Type)
	assert.Equal(t, 0, initial.Payload["criticalEquipment"])

	w := app.do(http.MethodPut, "/api/equipment/"+itoa(eq.ID), tok, `{"status":"Critical"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	update := readFrame(t, conn)
	assert.Equal(t, "dashboard_stats", update.Type)
	assert.Equal(t, 1, update.Payload["criticalEquipment"])
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
