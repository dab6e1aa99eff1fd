package services

import (
	"context"
	"sync"
	"time"

	"github.com/maintrack/backend/internal/metrics"
	"github.com/maintrack/backend/internal/realtime"
	"github.com/maintrack/backend/pkg/logger"
)

// Notifier is told after a committed write that may move the dashboard counters.
type Notifier interface {
	NotifyChange()
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyChange() {}

const snapshotTimeout = 5 * time.Second

// StatsBroadcaster recomputes the admin-scope dashboard snapshot and pushes it to
// every connected client. Broadcasts run in the background so a slow or failing
// push never affects the HTTP response of the write that triggered it.
type StatsBroadcaster struct {
	dashboard *DashboardService
	hub       *realtime.Hub
	wg        sync.WaitGroup
}

func NewStatsBroadcaster(dashboard *DashboardService, hub *realtime.Hub) *StatsBroadcaster {
	return &StatsBroadcaster{dashboard: dashboard, hub: hub}
}

func (b *StatsBroadcaster) NotifyChange() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := b.Broadcast(ctx); err != nil {
			logger.Warn().Err(err).Msg("dashboard broadcast failed")
		}
	}()
}

// Broadcast computes one snapshot and sends it to every client.
func (b *StatsBroadcaster) Broadcast(ctx context.Context) error {
	msg, err := b.SnapshotMessage(ctx)
	if err != nil {
		metrics.ObserveBroadcast(err, 0, 0)
		return err
	}
	delivered, dropped := b.hub.Broadcast(msg)
	metrics.ObserveBroadcast(nil, delivered, dropped)
	if dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("slow real-time clients skipped")
	}
	return nil
}

// SnapshotMessage returns the encoded dashboard_stats frame.
func (b *StatsBroadcaster) SnapshotMessage(ctx context.Context) ([]byte, error) {
	stats, err := b.dashboard.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return realtime.Encode(realtime.EventDashboardStats, stats)
}

// Wait blocks until in-flight broadcasts finish.
func (b *StatsBroadcaster) Wait() {
	b.wg.Wait()
}
