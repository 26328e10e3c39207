package scheduler

import "time"

// Metrics provides observability for the refresh scheduler. Optional: a
// Scheduler with no Metrics configured uses noopMetrics.
type Metrics interface {
	// RecordQueueDepth is called whenever a table is enqueued or dequeued,
	// reporting the heap's size immediately afterward.
	RecordQueueDepth(n int)
	// ObserveRefresh is called after every scheduled refresh attempt with
	// its outcome and how long it took.
	ObserveRefresh(success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordQueueDepth(int)               {}
func (noopMetrics) ObserveRefresh(bool, time.Duration) {}
