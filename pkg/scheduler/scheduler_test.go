package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/cache/badgerindex"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/foreignstorage"
	"github.com/chandrudp29/omniscidb/pkg/refresh"
	"github.com/chandrudp29/omniscidb/pkg/scheduler"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
)

func TestParseCreateOptions_Defaults(t *testing.T) {
	opts, err := scheduler.ParseCreateOptions(nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, catalog.UpdateAll, opts.UpdateType)
	assert.Equal(t, catalog.TimingManual, opts.TimingType)
	assert.False(t, opts.HasInterval)
}

func TestParseCreateOptions_InvalidUpdateType(t *testing.T) {
	_, err := scheduler.ParseCreateOptions(map[string]any{"refresh_update_type": "BOGUS"}, time.Now())
	assert.ErrorIs(t, err, scheduler.ErrInvalidRefreshUpdateType)
}

func TestParseCreateOptions_InvalidTimingType(t *testing.T) {
	_, err := scheduler.ParseCreateOptions(map[string]any{"refresh_timing_type": "BOGUS"}, time.Now())
	assert.ErrorIs(t, err, scheduler.ErrInvalidRefreshTimingType)
}

func TestParseCreateOptions_ScheduledRequiresStartDateTime(t *testing.T) {
	_, err := scheduler.ParseCreateOptions(map[string]any{"refresh_timing_type": "SCHEDULED"}, time.Now())
	assert.ErrorIs(t, err, scheduler.ErrMissingStartDateTime)
}

func TestParseCreateOptions_PastStartDateTimeRejected(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour).Format(time.RFC3339)
	_, err := scheduler.ParseCreateOptions(map[string]any{
		"refresh_timing_type":     "SCHEDULED",
		"refresh_start_date_time": past,
	}, now)
	assert.ErrorIs(t, err, scheduler.ErrPastStartDateTime)
}

func TestParseCreateOptions_ValidIntervalSuffixes(t *testing.T) {
	now := time.Now()
	cases := map[string]time.Duration{
		"30S": 30 * time.Second,
		"2H":  2 * time.Hour,
		"1D":  24 * time.Hour,
	}
	for raw, want := range cases {
		opts, err := scheduler.ParseCreateOptions(map[string]any{"refresh_interval": raw}, now)
		require.NoError(t, err, raw)
		assert.True(t, opts.HasInterval, raw)
		assert.Equal(t, want, opts.Interval, raw)
	}
}

func TestParseCreateOptions_InvalidIntervalRejected(t *testing.T) {
	for _, raw := range []string{"10", "H", "5X", "-3S"} {
		_, err := scheduler.ParseCreateOptions(map[string]any{"refresh_interval": raw}, time.Now())
		assert.ErrorIs(t, err, scheduler.ErrInvalidRefreshInterval, raw)
	}
}

func TestParseCreateOptions_ToRefreshOptionsRoundTrips(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)
	opts, err := scheduler.ParseCreateOptions(map[string]any{
		"refresh_update_type":     "APPEND",
		"refresh_timing_type":     "SCHEDULED",
		"refresh_start_date_time": start.Format(time.RFC3339),
		"refresh_interval":        "1H",
	}, now)
	require.NoError(t, err)

	ro := opts.ToRefreshOptions()
	assert.Equal(t, catalog.UpdateAppend, ro.UpdateType)
	assert.Equal(t, catalog.TimingScheduled, ro.TimingType)
	assert.Equal(t, start.Format(time.RFC3339), ro.StartDateTime)
	assert.EqualValues(t, 3600, ro.IntervalSeconds)
}

func newTestEngine(t *testing.T) (*refresh.Engine, *foreignstorage.Manager, *catalog.Catalog) {
	t.Helper()
	ctx := context.Background()

	idx, err := badgerindex.Open(ctx, badgerindex.Config{DBPath: filepath.Join(t.TempDir(), "index")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	c, err := cache.Open(ctx, cache.Config{RootDir: filepath.Join(t.TempDir(), "blobs"), Index: idx})
	require.NoError(t, err)

	cat := catalog.New()
	mgr := foreignstorage.New(cat, c, func(table *catalog.ForeignTable) (wrapper.DataWrapper, error) {
		return csvwrapper.New(table), nil
	})
	return refresh.New(cat, mgr), mgr, cat
}

func writeCSVAt(t *testing.T, path string, rows ...string) {
	t.Helper()
	content := ""
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScheduler_FiresDueEntryAndSetsHasRefreshedTable(t *testing.T) {
	eng, mgr, cat := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "source.csv")
	writeCSVAt(t, path, "1,x", "2,y")

	require.NoError(t, cat.RegisterTable(&catalog.ForeignTable{
		DBID: 1, TableID: 1, Name: "t", Wrapper: catalog.WrapperCSV,
		SourcePath: path, FragmentSize: 2,
		Columns: []catalog.ColumnDef{{ColumnID: 1, Name: "a"}, {ColumnID: 2, Name: "b"}},
	}))

	ctx := context.Background()
	prefix := chunkkey.New(1, 1)
	_, err := mgr.GetChunkMetadataVecForKeyPrefix(ctx, prefix)
	require.NoError(t, err)

	sched := scheduler.New(eng, cat, scheduler.Config{WaitDuration: time.Millisecond})
	opts := scheduler.CreateOptions{TimingType: catalog.TimingScheduled, StartDateTime: time.Now()}
	sched.ScheduleTable(prefix, opts)
	assert.Equal(t, 1, sched.QueueLen())

	sched.Start(ctx)
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	assert.True(t, sched.IsRunning())
	require.Eventually(t, sched.HasRefreshedTable, 2*time.Second, 2*time.Millisecond)

	// No interval was set, so the entry retires after firing once.
	assert.Eventually(t, func() bool { return sched.QueueLen() == 0 }, time.Second, 2*time.Millisecond)

	require.NoError(t, sched.Stop(context.Background()))
	assert.False(t, sched.IsRunning())
}

func TestScheduler_RequeuesEntryWithInterval(t *testing.T) {
	eng, mgr, cat := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "source.csv")
	writeCSVAt(t, path, "1,x", "2,y")

	require.NoError(t, cat.RegisterTable(&catalog.ForeignTable{
		DBID: 2, TableID: 2, Name: "t", Wrapper: catalog.WrapperCSV,
		SourcePath: path, FragmentSize: 2,
		Columns: []catalog.ColumnDef{{ColumnID: 1, Name: "a"}, {ColumnID: 2, Name: "b"}},
	}))

	ctx := context.Background()
	prefix := chunkkey.New(2, 2)
	_, err := mgr.GetChunkMetadataVecForKeyPrefix(ctx, prefix)
	require.NoError(t, err)

	sched := scheduler.New(eng, cat, scheduler.Config{WaitDuration: time.Millisecond})
	sched.ScheduleTable(prefix, scheduler.CreateOptions{
		TimingType:    catalog.TimingScheduled,
		StartDateTime: time.Now(),
		Interval:      20 * time.Millisecond,
		HasInterval:   true,
	})

	sched.Start(ctx)
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	require.Eventually(t, sched.HasRefreshedTable, 2*time.Second, 2*time.Millisecond)
	// With an interval set, the entry is pushed back rather than retired.
	assert.Eventually(t, func() bool { return sched.QueueLen() == 1 }, time.Second, 2*time.Millisecond)
}

func TestScheduler_ResetHasRefreshedTable(t *testing.T) {
	eng, _, cat := newTestEngine(t)
	sched := scheduler.New(eng, cat, scheduler.Config{WaitDuration: time.Millisecond})
	assert.False(t, sched.HasRefreshedTable())
	sched.ResetHasRefreshedTable()
	assert.False(t, sched.HasRefreshedTable())
}

func TestScheduler_ManualTableNeverEnqueued(t *testing.T) {
	eng, _, cat := newTestEngine(t)
	sched := scheduler.New(eng, cat, scheduler.Config{})
	sched.ScheduleTable(chunkkey.New(3, 3), scheduler.CreateOptions{TimingType: catalog.TimingManual})
	assert.Equal(t, 0, sched.QueueLen())
}

func TestScheduler_StopBeforeStartIsNoop(t *testing.T) {
	eng, _, cat := newTestEngine(t)
	sched := scheduler.New(eng, cat, scheduler.Config{})
	require.NoError(t, sched.Stop(context.Background()))
	assert.False(t, sched.IsRunning())
}
