package repository

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

// ListRoadSegmentIds returns every known road segment id. Segment rows
// themselves are owned externally; this repo only tracks the foreign
// key.
func (r *SQLiteRepository) ListRoadSegmentIds() ([]int64, error) {
	rows, err := sq.Select("id").From("road_segment").OrderBy("id ASC").
		RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("repository: list segments: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: scan segment id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func dayBounds(day time.Time) (int64, int64) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	return start.UnixMilli(), end.UnixMilli() - 1
}

// ListTelemetryForSegmentOnDay returns the (axisZ, speed, isLoaded)
// projection for every telemetry row on segmentID within day, UTC.
func (r *SQLiteRepository) ListTelemetryForSegmentOnDay(segmentID int64, day time.Time) ([]SegmentSample, error) {
	startMs, endMs := dayBounds(day)

	rows, err := sq.Select("axis_z", "speed", "is_loaded").
		From("truck_telemetry").
		Where(sq.Eq{"segment_id": segmentID}).
		Where(sq.GtOrEq{"timestamp_ms": startMs}).
		Where(sq.LtOrEq{"timestamp_ms": endMs}).
		RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("repository: list segment telemetry: %w", err)
	}
	defer rows.Close()

	var out []SegmentSample
	for rows.Next() {
		var s SegmentSample
		var isLoaded *bool
		if err := rows.Scan(&s.AxisZ, &s.Speed, &isLoaded); err != nil {
			return nil, fmt.Errorf("repository: scan segment telemetry: %w", err)
		}
		if isLoaded != nil {
			s.IsLoaded = *isLoaded
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountEventsForSegmentOnDay counts roughness events for segmentID
// within day, optionally restricted to CRITICAL severity.
func (r *SQLiteRepository) CountEventsForSegmentOnDay(segmentID int64, day time.Time, criticalOnly bool) (int64, error) {
	startMs, endMs := dayBounds(day)

	query := sq.Select("COUNT(*)").
		From("roughness_event").
		Where(sq.Eq{"segment_id": segmentID}).
		Where(sq.GtOrEq{"timestamp_ms": startMs}).
		Where(sq.LtOrEq{"timestamp_ms": endMs})

	if criticalOnly {
		query = query.Where(sq.Eq{"severity": schema.SeverityCritical})
	}

	var count int64
	if err := query.RunWith(r.stmtCache).QueryRow().Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: count events: %w", err)
	}
	return count, nil
}

const upsertStatsSQL = `
INSERT INTO road_segment_stats (
	segment_id, date, total_passes, loaded_passes, avg_speed, std_dev_z,
	iri, iri_category, total_events, critical_events
) VALUES (
	:segment_id, :date, :total_passes, :loaded_passes, :avg_speed, :std_dev_z,
	:iri, :iri_category, :total_events, :critical_events
)
ON CONFLICT (segment_id, date) DO UPDATE SET
	total_passes    = excluded.total_passes,
	loaded_passes   = excluded.loaded_passes,
	avg_speed       = excluded.avg_speed,
	std_dev_z       = excluded.std_dev_z,
	iri             = excluded.iri,
	iri_category    = excluded.iri_category,
	total_events    = excluded.total_events,
	critical_events = excluded.critical_events
`

// UpsertSegmentStats writes row keyed by (segmentId, date). Re-running
// for the same day is idempotent: last write wins.
func (r *SQLiteRepository) UpsertSegmentStats(row *schema.RoadSegmentStats) error {
	if _, err := r.db.NamedExec(upsertStatsSQL, row); err != nil {
		return fmt.Errorf("repository: upsert segment stats: %w", err)
	}
	return nil
}
