package statsaggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/roughness"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

type fakeRepo struct {
	repository.Repository
	segmentIDs    []int64
	samples       map[int64][]repository.SegmentSample
	totalEvents   map[int64]int64
	criticalEvents map[int64]int64
	upserted      []*schema.RoadSegmentStats
	lockHeld      bool
}

func (f *fakeRepo) AcquireAdvisoryLock(name string) (bool, error) {
	if f.lockHeld {
		return false, nil
	}
	f.lockHeld = true
	return true, nil
}

func (f *fakeRepo) ReleaseAdvisoryLock(name string) error {
	f.lockHeld = false
	return nil
}

func (f *fakeRepo) ListRoadSegmentIds() ([]int64, error) {
	return f.segmentIDs, nil
}

func (f *fakeRepo) ListTelemetryForSegmentOnDay(segmentID int64, day time.Time) ([]repository.SegmentSample, error) {
	return f.samples[segmentID], nil
}

func (f *fakeRepo) CountEventsForSegmentOnDay(segmentID int64, day time.Time, criticalOnly bool) (int64, error) {
	if criticalOnly {
		return f.criticalEvents[segmentID], nil
	}
	return f.totalEvents[segmentID], nil
}

func (f *fakeRepo) UpsertSegmentStats(row *schema.RoadSegmentStats) error {
	f.upserted = append(f.upserted, row)
	return nil
}

func TestRunAggregatesEachNonEmptySegment(t *testing.T) {
	repo := &fakeRepo{
		segmentIDs: []int64{1, 2},
		samples: map[int64][]repository.SegmentSample{
			1: {
				{AxisZ: 1000, Speed: 40, IsLoaded: true},
				{AxisZ: 1200, Speed: 50, IsLoaded: false},
			},
			// segment 2 has no samples: should be skipped entirely.
		},
		totalEvents:    map[int64]int64{1: 3},
		criticalEvents: map[int64]int64{1: 1},
	}

	agg := New(repo, roughness.DefaultIriThresholds)
	err := agg.Run(time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, repo.upserted, 1)
	row := repo.upserted[0]
	require.Equal(t, int64(1), row.SegmentID)
	require.Equal(t, "2026-07-29", row.Date)
	require.Equal(t, int64(2), row.TotalPasses)
	require.Equal(t, int64(1), row.LoadedPasses)
	require.InDelta(t, 45.0, row.AvgSpeed, 0.001)
	require.Equal(t, int64(3), row.TotalEvents)
	require.Equal(t, int64(1), row.CriticalEvents)
}

func TestRunSkipsWhenLockHeld(t *testing.T) {
	repo := &fakeRepo{lockHeld: true, segmentIDs: []int64{1}}
	agg := New(repo, roughness.DefaultIriThresholds)

	err := agg.Run(time.Now())
	require.NoError(t, err)
	require.Empty(t, repo.upserted)
}
