// Package metrics tracks the small set of operational counters that
// make up the system's user-visible surface alongside logs:
// ingested/dropped/duplicate-skipped telemetry, unauthorized packets,
// and event-detector batches processed.
//
// This is intentionally a handful of atomic counters, not a metrics
// exporter: wiring a client library (e.g. Prometheus) for five numbers
// with no scrape endpoint in scope would be dependency weight with no
// consumer; see DESIGN.md.
package metrics

import "sync/atomic"

var (
	ingested             atomic.Int64
	dropped              atomic.Int64
	duplicatesSkipped    atomic.Int64
	unauthorizedPackets  atomic.Int64
	eventDetectorBatches atomic.Int64
)

func IncIngested(n int)          { ingested.Add(int64(n)) }
func IncDropped()                { dropped.Add(1) }
func IncDuplicatesSkipped(n int) { duplicatesSkipped.Add(int64(n)) }
func IncUnauthorizedPackets()    { unauthorizedPackets.Add(1) }
func IncEventDetectorBatches()   { eventDetectorBatches.Add(1) }

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	Ingested             int64
	Dropped              int64
	DuplicatesSkipped    int64
	UnauthorizedPackets  int64
	EventDetectorBatches int64
}

func Read() Snapshot {
	return Snapshot{
		Ingested:             ingested.Load(),
		Dropped:              dropped.Load(),
		DuplicatesSkipped:    duplicatesSkipped.Load(),
		UnauthorizedPackets:  unauthorizedPackets.Load(),
		EventDetectorBatches: eventDetectorBatches.Load(),
	}
}
