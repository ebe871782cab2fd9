// Package eventdetect implements the event detector: a periodic
// scan over unprocessed telemetry that opens, extends and closes
// roughness events per truck substream, then publishes and persists
// whatever it finds.
package eventdetect

import (
	"fmt"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/eventbus"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/metrics"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

const advisoryLockName = "event-detector"

// Thresholds holds the |axisZ| (milli-g) severity cutoffs,
// configurable per internal/config.
type Thresholds struct {
	MediumMg   int32
	HighMg     int32
	CriticalMg int32
}

// Detector runs one scan-and-persist pass over unprocessed telemetry.
type Detector struct {
	repo       repository.Repository
	bus        *eventbus.Client // may be nil: publish is best-effort
	thresholds Thresholds
	batchSize  int
}

func New(repo repository.Repository, bus *eventbus.Client, thresholds Thresholds, batchSize int) *Detector {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Detector{repo: repo, bus: bus, thresholds: thresholds, batchSize: batchSize}
}

// Run claims up to batchSize unprocessed rows, scans them for
// roughness events, persists both the events and the processed-mark,
// and publishes each event to the event bus.
func (d *Detector) Run() error {
	acquired, err := d.repo.AcquireAdvisoryLock(advisoryLockName)
	if err != nil {
		return fmt.Errorf("eventdetect: acquire lock: %w", err)
	}
	if !acquired {
		log.Debugf("eventdetect: another instance holds the lock, skipping run")
		return nil
	}
	defer func() {
		if err := d.repo.ReleaseAdvisoryLock(advisoryLockName); err != nil {
			log.Warnf("eventdetect: release lock: %v", err)
		}
	}()

	rows, err := d.repo.ListUnprocessedTelemetry(d.batchSize)
	if err != nil {
		return fmt.Errorf("eventdetect: list unprocessed: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	events := scan(rows, d.thresholds)

	if len(events) > 0 {
		if err := d.repo.InsertRoughnessEvents(events); err != nil {
			return fmt.Errorf("eventdetect: insert events: %w", err)
		}
		for _, ev := range events {
			if d.bus == nil {
				continue
			}
			if err := d.bus.PublishRoughnessEvent(ev); err != nil {
				log.Warnf("eventdetect: publish event: %v", err)
			}
		}
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := d.repo.MarkTelemetryProcessed(ids); err != nil {
		return fmt.Errorf("eventdetect: mark processed: %w", err)
	}

	metrics.IncEventDetectorBatches()
	log.Infof("eventdetect: scanned %d rows, emitted %d events", len(rows), len(events))
	return nil
}

// substreamState tracks the in-progress event for one truck.
type substreamState struct {
	event *schema.RoughnessEvent
	// lastTimestampMs is the timestamp of the last sample that
	// extended the current event.
	lastTimestampMs int64
}

// scan runs the per-truck-substream open/extend/close algorithm over
// rows, which must already be ordered by (truckId, timestamp).
func scan(rows []*schema.TruckTelemetry, t Thresholds) []*schema.RoughnessEvent {
	states := map[int64]*substreamState{}
	var events []*schema.RoughnessEvent

	for _, row := range rows {
		st, ok := states[row.TruckID]
		if !ok {
			st = &substreamState{}
			states[row.TruckID] = st
		}

		sev := classify(row.AxisZ, t)

		switch {
		case sev == schema.SeverityNone && st.event != nil:
			events = append(events, st.event)
			st.event = nil

		case sev != schema.SeverityNone && st.event == nil:
			st.event = openEvent(row, sev)
			st.lastTimestampMs = row.TimestampMs

		case sev != schema.SeverityNone && st.event != nil:
			extendEvent(st.event, row, sev, st.lastTimestampMs)
			st.lastTimestampMs = row.TimestampMs
		}
	}

	// Events still open at the batch boundary are closed and emitted;
	// the next batch opens a fresh current per truck.
	for _, st := range states {
		if st.event != nil {
			events = append(events, st.event)
		}
	}

	return events
}

func classify(axisZ int32, t Thresholds) schema.Severity {
	a := abs32(axisZ)
	switch {
	case a > t.CriticalMg:
		return schema.SeverityCritical
	case a > t.HighMg:
		return schema.SeverityHigh
	case a > t.MediumMg:
		return schema.SeverityMedium
	default:
		return schema.SeverityNone
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func openEvent(row *schema.TruckTelemetry, sev schema.Severity) *schema.RoughnessEvent {
	return &schema.RoughnessEvent{
		TimestampMs: row.TimestampMs,
		DurationMs:  0,
		TruckID:     row.TruckID,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		SegmentID:   row.SegmentID,
		EventType:   "roughness",
		Severity:    sev,
		PeakX:       row.AxisX,
		PeakY:       row.AxisY,
		PeakZ:       row.AxisZ,
		Speed:       row.Speed,
		IsLoaded:    row.IsLoaded,
	}
}

func extendEvent(ev *schema.RoughnessEvent, row *schema.TruckTelemetry, sev schema.Severity, lastTimestampMs int64) {
	ev.DurationMs += row.TimestampMs - lastTimestampMs
	ev.PeakX = maxAbs32(ev.PeakX, row.AxisX)
	ev.PeakY = maxAbs32(ev.PeakY, row.AxisY)
	ev.PeakZ = maxAbs32(ev.PeakZ, row.AxisZ)
	ev.Severity = ev.Severity.Max(sev)
}

func maxAbs32(a, b int32) int32 {
	if abs32(b) > abs32(a) {
		return b
	}
	return a
}
