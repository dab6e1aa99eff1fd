package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/internal/realtime"
	"github.com/maintrack/backend/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type    string         `json:"type"`
	Payload DashboardStats `json:"payload"`
}

// connect registers a live WebSocket client for userID on hub and returns the peer end.
func connect(t *testing.T, hub *realtime.Hub, userID uint) *websocket.Conn {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := realtime.NewClient(hub, conn, userID)
		hub.Register(client)
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err, "no frame received")
	var f frame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

func TestStatsBroadcaster_PushesAdminSnapshot(t *testing.T) {
	db := testutils.NewDB(t)
	tech := testutils.CreateUser(t, db, models.RoleTechnician)
	emp := testutils.CreateUser(t, db, models.RoleEmployee)
	testutils.CreateEquipment(t, db, tech.ID, models.EquipmentDown)

	hub := realtime.NewHub()
	// an employee connection still receives the unscoped counters
	conn := connect(t, hub, emp.ID)

	vis := NewVisibility(db)
	b := NewStatsBroadcaster(NewDashboardService(db, vis), hub)
	reqs := NewRequestService(db, vis, b)

	_, err := reqs.Create(context.Background(), viewerOf(emp), decode[RequestPayload](t,
		`{"maintenance_for":"work_center","work_center":"Line 1","maintenance_type":"Corrective"}`))
	require.NoError(t, err)
	b.Wait()

	f := readFrame(t, conn)
	assert.Equal(t, realtime.EventDashboardStats, f.Type)
	assert.Equal(t, int64(1), f.Payload.CriticalEquipment)
	assert.Equal(t, int64(1), f.Payload.OpenRequests)
	assert.Equal(t, 0, f.Payload.TechnicianLoad)
}

func TestStatsBroadcaster_FailureDoesNotPanic(t *testing.T) {
	db := testutils.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	hub := realtime.NewHub()
	conn := connect(t, hub, 1)

	b := NewStatsBroadcaster(NewDashboardService(db, NewVisibility(db)), hub)
	assert.Error(t, b.Broadcast(context.Background()))

	b.NotifyChange()
	b.Wait()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "a failed snapshot must not reach clients")
}
