// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Registry is private to the service so tests and embedders avoid the global default.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "maintrack_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintrack_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	broadcasts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "maintrack_broadcasts_total",
		Help: "Dashboard snapshots pushed to real-time clients, by result",
	}, []string{"result"})

	broadcastDeliveries = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "maintrack_broadcast_deliveries_total",
		Help: "Per-client snapshot deliveries, by outcome",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveBroadcast records one broadcast attempt.
func ObserveBroadcast(err error, delivered, dropped int) {
	if err != nil {
		broadcasts.WithLabelValues("error").Inc()
		return
	}
	broadcasts.WithLabelValues("ok").Inc()
	broadcastDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	broadcastDeliveries.WithLabelValues("dropped").Add(float64(dropped))
}

// RegisterRealtimeClients exposes the live connection count.
func RegisterRealtimeClients(count func() int) error {
	return registerOnce(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "maintrack_realtime_clients",
		Help: "Currently connected real-time clients",
	}, func() float64 { return float64(count()) }))
}

// RegisterDatabase exposes connection pool statistics. A nil db is ignored.
func RegisterDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return registerOnce(collectors.NewDBStatsCollector(sqlDB, "maintrack"))
}

func registerOnce(c prometheus.Collector) error {
	if err := Registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

// Middleware counts requests by matched route so path ids don't explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
	return gin.WrapH(h)
}
