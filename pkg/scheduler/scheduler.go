// Package scheduler implements the refresh scheduler of §4.F: a min-heap of
// (next_refresh_time, table_prefix) pairs drained by a background worker
// that invokes refresh_table(p, evict=false) on each table as it comes due.
//
// The heap shape is grounded on dolthub-dolt's RegionHeap
// (go/libraries/doltcore/remotestorage/internal/ranges/ranges.go); the
// worker's start/stop/done-channel lifecycle is grounded on the teacher's
// pkg/gc.Collector.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chandrudp29/omniscidb/internal/logger"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/refresh"
)

// Config configures a Scheduler.
type Config struct {
	// WaitDuration is the worker's poll granularity: how often it wakes to
	// check the heap for due entries. Production default is 1s; tests set
	// it to ~1ms (§4.F "set_wait_duration(ms)").
	WaitDuration time.Duration
	// Metrics receives queue depth and refresh outcome observations.
	// Optional; a noop implementation is used when nil.
	Metrics Metrics
}

// Scheduler runs the background refresh loop described in §4.F.
//
// Thread safety: safe for concurrent use.
type Scheduler struct {
	engine  *refresh.Engine
	catalog *catalog.Catalog
	metrics Metrics

	mu           sync.Mutex
	waitDuration time.Duration
	queue        refreshHeap

	running           atomic.Bool
	hasRefreshedTable atomic.Bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns a Scheduler bound to engine (for running refreshes) and cat
// (for recording last_refresh_time). Not started until Start is called.
func New(engine *refresh.Engine, cat *catalog.Catalog, config Config) *Scheduler {
	wait := config.WaitDuration
	if wait <= 0 {
		wait = time.Second
	}
	m := config.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &Scheduler{
		engine:       engine,
		catalog:      cat,
		metrics:      m,
		waitDuration: wait,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetWaitDuration changes the worker's poll granularity. Safe to call before
// or after Start; takes effect on the worker's next wake.
func (s *Scheduler) SetWaitDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitDuration = d
}

func (s *Scheduler) currentWaitDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitDuration
}

// ScheduleTable adds prefix to the refresh queue according to opts. Tables
// whose TimingType is not catalog.TimingScheduled are never added: a MANUAL
// table is only refreshed by an explicit REFRESH statement, never by this
// worker.
func (s *Scheduler) ScheduleTable(prefix chunkkey.Key, opts CreateOptions) {
	if opts.TimingType != catalog.TimingScheduled {
		return
	}
	entry := &refreshEntry{
		TablePrefix:     prefix,
		NextRefreshTime: opts.StartDateTime,
	}
	if opts.HasInterval {
		entry.Interval = opts.Interval
	}

	s.mu.Lock()
	heap.Push(&s.queue, entry)
	depth := s.queue.Len()
	s.mu.Unlock()
	s.metrics.RecordQueueDepth(depth)
}

// QueueLen returns the number of tables currently pending in the heap.
// Exposed for test synchronization.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Start spawns the background worker. Safe to call multiple times; only the
// first call after construction or after Stop takes effect.
//
// The worker runs until ctx is done or Stop is called, the Go-idiomatic
// substitute for §4.F's "external program running flag".
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	s.mu.Lock()
	s.stopCh = stopCh
	s.doneCh = doneCh
	s.mu.Unlock()

	logger.Info("scheduler: starting, wait_duration=%s", s.currentWaitDuration())
	go s.worker(ctx, stopCh, doneCh)
}

// Stop signals the worker to exit and waits for it to finish, up to ctx's
// deadline. The scheduler may be Started again afterward.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	logger.Info("scheduler: stopping...")
	close(stopCh)

	select {
	case <-doneCh:
		logger.Info("scheduler: stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("scheduler: shutdown timeout")
		return ctx.Err()
	}
}

// IsRunning reports whether the background worker is currently active.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// HasRefreshedTable reports whether the worker has completed at least one
// successful refresh since the last ResetHasRefreshedTable call. Exists
// purely for test synchronization (§4.F).
func (s *Scheduler) HasRefreshedTable() bool { return s.hasRefreshedTable.Load() }

// ResetHasRefreshedTable clears the HasRefreshedTable flag.
func (s *Scheduler) ResetHasRefreshedTable() { s.hasRefreshedTable.Store(false) }

func (s *Scheduler) worker(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer s.running.Store(false)

	logger.Info("scheduler: worker started")

	for {
		timer := time.NewTimer(s.currentWaitDuration())
		select {
		case <-timer.C:
			s.fireDueEntries(ctx)
		case <-stopCh:
			timer.Stop()
			logger.Info("scheduler: worker stopping...")
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// fireDueEntries pops and refreshes every entry whose NextRefreshTime has
// passed, rescheduling those with a nonzero Interval from the current time
// rather than coalescing missed deadlines (§4.F: "fires once ... schedules
// the next occurrence from now").
func (s *Scheduler) fireDueEntries(ctx context.Context) {
	for {
		now := time.Now()

		s.mu.Lock()
		if s.queue.Len() == 0 || s.queue[0].NextRefreshTime.After(now) {
			s.mu.Unlock()
			return
		}
		entry := heap.Pop(&s.queue).(*refreshEntry)
		depth := s.queue.Len()
		s.mu.Unlock()
		s.metrics.RecordQueueDepth(depth)

		s.refreshOne(ctx, entry, now)
	}
}

// refreshOne runs a single scheduled refresh. Errors are logged and
// swallowed per §4.F/§7: a failing scan must not destroy still-usable
// cached data (the pre-eviction error property), so the table stays
// scheduled on its interval using whatever was cached before the failure.
func (s *Scheduler) refreshOne(ctx context.Context, entry *refreshEntry, now time.Time) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	err := s.engine.RefreshTable(runCtx, entry.TablePrefix, refresh.Options{})
	cancel()
	s.metrics.ObserveRefresh(err == nil, time.Since(start))

	if err != nil {
		logger.Error("scheduler: refresh failed for table %s: %v", entry.TablePrefix, err)
	} else {
		s.hasRefreshedTable.Store(true)
		if uerr := s.catalog.UpdateLastRefreshTime(entry.TablePrefix[chunkkey.DBIdx], entry.TablePrefix[chunkkey.TableIdx], now); uerr != nil {
			logger.Warn("scheduler: could not record last_refresh_time for table %s: %v", entry.TablePrefix, uerr)
		}
		logger.Info("scheduler: refreshed table %s", entry.TablePrefix)
	}

	if entry.Interval > 0 {
		entry.NextRefreshTime = now.Add(entry.Interval)
		s.mu.Lock()
		heap.Push(&s.queue, entry)
		depth := s.queue.Len()
		s.mu.Unlock()
		s.metrics.RecordQueueDepth(depth)
	}
}
