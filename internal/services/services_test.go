package services

import (
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/maintrack/backend/internal/models"
	"github.com/maintrack/backend/pkg/response"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) NotifyChange() { n.calls.Add(1) }

func (n *countingNotifier) Count() int { return int(n.calls.Load()) }

func viewerOf(u *models.User) Viewer {
	return Viewer{ID: u.ID, Role: u.Role}
}

// decode builds a payload the way the handlers do, from a raw JSON body.
func decode[T any](t *testing.T, body string) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return &v
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, response.StatusOf(err), err.Error())
}
