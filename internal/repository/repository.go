// Package repository defines the persistence interface the ingestion
// and derivation pipelines consume, plus a concrete SQLite-backed
// implementation: sqlx over a pooled *sql.DB, squirrel for query
// construction, a stmt cache, and a hooks-wrapped driver for query
// logging.
package repository

import (
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

// SegmentSample is the (axisZ, speed, isLoaded) projection the
// statistics aggregator needs per telemetry row.
type SegmentSample struct {
	AxisZ    int32
	Speed    uint16
	IsLoaded bool
}

// InsertResult reports how many rows a batch insert actually wrote.
type InsertResult struct {
	Inserted int
	Skipped  int
}

// Repository is the narrow persistence interface the gateway needs.
// The ingestion and derivation pipelines depend on this interface, not
// on SQLiteRepository directly, so tests can substitute an in-memory
// fake.
type Repository interface {
	FindTruckByIdentifier(identifier string) (*schema.Truck, error)

	InsertTelemetryBatch(rows []*schema.TruckTelemetry) (InsertResult, error)
	ListUnprocessedTelemetry(limit int) ([]*schema.TruckTelemetry, error)
	MarkTelemetryProcessed(ids []int64) error

	InsertRoughnessEvents(events []*schema.RoughnessEvent) error

	ListRoadSegmentIds() ([]int64, error)
	ListTelemetryForSegmentOnDay(segmentID int64, day time.Time) ([]SegmentSample, error)
	CountEventsForSegmentOnDay(segmentID int64, day time.Time, criticalOnly bool) (int64, error)
	UpsertSegmentStats(row *schema.RoadSegmentStats) error

	AcquireAdvisoryLock(name string) (bool, error)
	ReleaseAdvisoryLock(name string) error
}
