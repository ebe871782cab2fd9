package repository

import (
	"fmt"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

const insertEventSQL = `
INSERT INTO roughness_event (
	timestamp_ms, duration_ms, truck_id, latitude, longitude, segment_id,
	event_type, severity, peak_x, peak_y, peak_z, speed, is_loaded
) VALUES (
	:timestamp_ms, :duration_ms, :truck_id, :latitude, :longitude, :segment_id,
	:event_type, :severity, :peak_x, :peak_y, :peak_z, :speed, :is_loaded
)`

// InsertRoughnessEvents inserts every event emitted by one event
// detector batch.
func (r *SQLiteRepository) InsertRoughnessEvents(events []*schema.RoughnessEvent) error {
	for _, e := range events {
		if _, err := r.db.NamedExec(insertEventSQL, e); err != nil {
			return fmt.Errorf("repository: insert roughness event: %w", err)
		}
	}
	return nil
}
