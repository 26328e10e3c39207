package scheduler

import (
	"time"

	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
)

// refreshEntry is one table's place in the scheduler's priority queue: when
// it next comes due, and how far to push it out afterward.
type refreshEntry struct {
	TablePrefix     chunkkey.Key
	NextRefreshTime time.Time
	Interval        time.Duration // zero means "fire once, then retire"
	heapIndex       int
}

// refreshHeap is a min-heap ordered by NextRefreshTime, the same
// container/heap.Interface shape as dolthub-dolt's RegionHeap
// (go/libraries/doltcore/remotestorage/internal/ranges/ranges.go), adapted
// from "largest byte range first" to "earliest due time first".
type refreshHeap []*refreshEntry

func (h refreshHeap) Len() int { return len(h) }

func (h refreshHeap) Less(i, j int) bool {
	return h[i].NextRefreshTime.Before(h[j].NextRefreshTime)
}

func (h refreshHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *refreshHeap) Push(x any) {
	e := x.(*refreshEntry)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *refreshHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
