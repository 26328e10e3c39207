package config

import (
	"strconv"

	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/metrics"
	"github.com/chandrudp29/omniscidb/pkg/scheduler"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/parquetwrapper"
)

// MetricsResult contains all metrics-related components created from
// configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled).
	Server *metrics.Server
	// CacheMetrics, SchedulerMetrics, and ParquetMetrics are nil when
	// metrics are disabled; every consumer already falls back to its own
	// noop implementation on a nil Metrics field, so a nil value here is
	// never a special case the caller has to handle.
	CacheMetrics     cache.Metrics
	SchedulerMetrics scheduler.Metrics
	ParquetMetrics   parquetwrapper.SourceMetrics
}

// InitializeMetrics creates and initializes all metrics components based on
// configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for the cache, scheduler,
//     and Parquet source
//
// If metrics are disabled, every field is left nil; the cache, scheduler,
// and parquetwrapper packages already treat a nil Metrics as their own
// no-op implementation.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	port, _ := strconv.Atoi(cfg.Server.Metrics.Port)
	server := metrics.NewServer(metrics.ServerConfig{
		Port: port,
	})

	return &MetricsResult{
		Server:           server,
		CacheMetrics:     metrics.NewCacheMetrics(),
		SchedulerMetrics: metrics.NewSchedulerMetrics(),
		ParquetMetrics:   metrics.NewParquetSourceMetrics(),
	}
}
