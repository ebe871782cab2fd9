// Package statsaggregate implements the statistics aggregator: a
// daily task that rolls up the prior UTC day's telemetry and events
// into one RoadSegmentStats row per road segment.
package statsaggregate

import (
	"fmt"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/roughness"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

const advisoryLockName = "stats-aggregator"

// Aggregator rolls up one day's telemetry per road segment.
type Aggregator struct {
	repo repository.Repository
	iri  roughness.IriThresholds
}

func New(repo repository.Repository, iri roughness.IriThresholds) *Aggregator {
	return &Aggregator{repo: repo, iri: iri}
}

// Run aggregates the UTC calendar day of day (only its date component
// is used) for every known road segment.
func (a *Aggregator) Run(day time.Time) error {
	acquired, err := a.repo.AcquireAdvisoryLock(advisoryLockName)
	if err != nil {
		return fmt.Errorf("statsaggregate: acquire lock: %w", err)
	}
	if !acquired {
		log.Debugf("statsaggregate: another instance holds the lock, skipping run")
		return nil
	}
	defer func() {
		if err := a.repo.ReleaseAdvisoryLock(advisoryLockName); err != nil {
			log.Warnf("statsaggregate: release lock: %v", err)
		}
	}()

	segmentIDs, err := a.repo.ListRoadSegmentIds()
	if err != nil {
		return fmt.Errorf("statsaggregate: list segments: %w", err)
	}

	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dateStr := day.Format("2006-01-02")

	var aggregated int
	for _, segmentID := range segmentIDs {
		row, err := a.aggregateSegment(segmentID, day, dateStr)
		if err != nil {
			return fmt.Errorf("statsaggregate: segment %d: %w", segmentID, err)
		}
		if row == nil {
			continue
		}
		if err := a.repo.UpsertSegmentStats(row); err != nil {
			return fmt.Errorf("statsaggregate: upsert segment %d: %w", segmentID, err)
		}
		aggregated++
	}

	log.Infof("statsaggregate: aggregated %d/%d segments for %s", aggregated, len(segmentIDs), dateStr)
	return nil
}

func (a *Aggregator) aggregateSegment(segmentID int64, day time.Time, dateStr string) (*schema.RoadSegmentStats, error) {
	samples, err := a.repo.ListTelemetryForSegmentOnDay(segmentID, day)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	// totalPasses counts every raw sample row on the segment that day,
	// not deduplicated trips: trip segmentation would need more state
	// than a single day's telemetry scan carries.
	n := len(samples)
	if n == 0 {
		return nil, nil
	}

	var loadedPasses int64
	var speedSum float64
	axisZValues := make([]float64, 0, n)
	for _, s := range samples {
		if s.IsLoaded {
			loadedPasses++
		}
		speedSum += float64(s.Speed)
		axisZValues = append(axisZValues, float64(s.AxisZ))
	}
	avgSpeed := speedSum / float64(n)

	stdDevZ := roughness.StdDev(axisZValues)
	iriResult := roughness.EstimateIri(axisZValues, avgSpeed, a.iri)

	totalEvents, err := a.repo.CountEventsForSegmentOnDay(segmentID, day, false)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	criticalEvents, err := a.repo.CountEventsForSegmentOnDay(segmentID, day, true)
	if err != nil {
		return nil, fmt.Errorf("count critical events: %w", err)
	}

	return &schema.RoadSegmentStats{
		SegmentID:      segmentID,
		Date:           dateStr,
		TotalPasses:    int64(n),
		LoadedPasses:   loadedPasses,
		AvgSpeed:       avgSpeed,
		StdDevZ:        stdDevZ,
		Iri:            iriResult.Iri,
		IriCategory:    iriResult.Category,
		TotalEvents:    totalEvents,
		CriticalEvents: criticalEvents,
	}, nil
}
