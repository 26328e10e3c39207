package config

import (
	"context"
	"fmt"

	"github.com/chandrudp29/omniscidb/internal/server"
	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/cache/badgerindex"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/foreignstorage"
	"github.com/chandrudp29/omniscidb/pkg/refresh"
	"github.com/chandrudp29/omniscidb/pkg/scheduler"
)

// Runtime is every long-lived component wired together from a Config,
// ready for cmd/chunkmgrd to start and stop.
//
// Grounded on the teacher's InitializeRegistry: one function that builds
// every store/adapter in dependency order and hands back a single struct,
// generalized from the teacher's metadata/content/share trio to this
// module's cache/catalog/refresh/scheduler/server chain.
type Runtime struct {
	Catalog   *catalog.Catalog
	Cache     *cache.Cache
	Manager   *foreignstorage.Manager
	Engine    *refresh.Engine
	Scheduler *scheduler.Scheduler
	Server    *server.Server
	Metrics   *MetricsResult

	index *badgerindex.Index
}

// BuildRuntime wires the cache, catalog, refresh engine, scheduler, and TCP
// front-end from cfg.
func BuildRuntime(ctx context.Context, cfg *Config) (*Runtime, error) {
	metricsResult := InitializeMetrics(cfg)

	idx, err := badgerindex.Open(ctx, badgerindex.Config{DBPath: cfg.Cache.IndexDBPath})
	if err != nil {
		return nil, fmt.Errorf("config: opening cache index: %w", err)
	}

	chunkCache, err := cache.Open(ctx, cache.Config{
		RootDir: cfg.Cache.RootDir,
		Index:   idx,
		Metrics: metricsResult.CacheMetrics,
	})
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("config: opening cache: %w", err)
	}

	cat, createOpts, err := BuildCatalog(cfg)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	factory, err := CreateWrapperFactory(ctx, cfg.S3)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	mgr := foreignstorage.New(cat, chunkCache, factory)
	engine := refresh.New(cat, mgr)

	sched := scheduler.New(engine, cat, scheduler.Config{
		WaitDuration: cfg.Scheduler.WaitDuration,
		Metrics:      metricsResult.SchedulerMetrics,
	})
	for _, tc := range cfg.Tables {
		prefix := chunkkey.New(tc.DBID, tc.TableID)
		if opts, ok := createOpts[prefix.String()]; ok {
			sched.ScheduleTable(prefix, opts)
		}
	}

	terminator := byte(';')
	if len(cfg.Server.Terminator) > 0 {
		terminator = cfg.Server.Terminator[0]
	}
	dispatcher := &server.CommandDispatcher{Catalog: cat, Engine: engine}
	srv := server.New(server.Config{Port: cfg.Server.Port, Terminator: terminator}, dispatcher)

	return &Runtime{
		Catalog:   cat,
		Cache:     chunkCache,
		Manager:   mgr,
		Engine:    engine,
		Scheduler: sched,
		Server:    srv,
		Metrics:   metricsResult,
		index:     idx,
	}, nil
}

// Close releases the durable cache index. Call once after the scheduler and
// server have stopped.
func (r *Runtime) Close() error {
	return r.index.Close()
}
