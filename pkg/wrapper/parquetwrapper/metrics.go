package parquetwrapper

import "time"

// SourceMetrics provides observability for S3Source's GetObject/HeadObject
// calls. Optional: an S3Source with no Metrics configured uses noopMetrics.
type SourceMetrics interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}
