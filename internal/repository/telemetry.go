package repository

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

func (r *SQLiteRepository) FindTruckByIdentifier(identifier string) (*schema.Truck, error) {
	row := sq.Select("id", "identifier", "status").
		From("truck").Where(sq.Eq{"identifier": identifier}).
		RunWith(r.stmtCache).QueryRow()

	var t schema.Truck
	if err := row.Scan(&t.ID, &t.Identifier, &t.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: find truck: %w", err)
	}
	return &t, nil
}

const insertTelemetrySQL = `
INSERT INTO truck_telemetry (
	timestamp_ms, truck_id, latitude, longitude, altitude, speed, heading, satellites,
	axis_x, axis_y, axis_z, ignition, movement, external_voltage, battery_voltage,
	din1, din2, analog_input1, total_odometer, gsm_signal, segment_id, is_loaded,
	raw_record, processed
) VALUES (
	:timestamp_ms, :truck_id, :latitude, :longitude, :altitude, :speed, :heading, :satellites,
	:axis_x, :axis_y, :axis_z, :ignition, :movement, :external_voltage, :battery_voltage,
	:din1, :din2, :analog_input1, :total_odometer, :gsm_signal, :segment_id, :is_loaded,
	:raw_record, :processed
)`

// InsertTelemetryBatch inserts every row, skipping duplicates on
// (truck_id, timestamp_ms). Each row is inserted individually so one
// duplicate does not abort the rest of the batch.
func (r *SQLiteRepository) InsertTelemetryBatch(rows []*schema.TruckTelemetry) (InsertResult, error) {
	var result InsertResult

	for _, row := range rows {
		_, err := r.db.NamedExec(insertTelemetrySQL, row)
		if err == nil {
			result.Inserted++
			continue
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			result.Skipped++
			continue
		}

		log.Errorf("repository: insert telemetry row failed: %v", err)
		return result, fmt.Errorf("repository: insert telemetry: %w", err)
	}

	return result, nil
}

// ListUnprocessedTelemetry returns up to limit rows ordered by
// (truck_id, timestamp_ms), the order the event detector requires to
// scan per-truck substreams in arrival order.
func (r *SQLiteRepository) ListUnprocessedTelemetry(limit int) ([]*schema.TruckTelemetry, error) {
	query := sq.Select(telemetryColumns...).
		From("truck_telemetry").
		Where(sq.Eq{"processed": false}).
		OrderBy("truck_id ASC", "timestamp_ms ASC").
		Limit(uint64(limit))

	rows, err := query.RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("repository: list unprocessed: %w", err)
	}
	defer rows.Close()

	var out []*schema.TruckTelemetry
	for rows.Next() {
		t, err := scanTelemetry(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan telemetry: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkTelemetryProcessed flips processed false->true for ids in one
// update, after an event-detector batch finishes with them.
func (r *SQLiteRepository) MarkTelemetryProcessed(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sq.Update("truck_telemetry").
		Set("processed", true).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("repository: build mark-processed query: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("repository: mark processed: %w", err)
	}
	return nil
}

var telemetryColumns = []string{
	"id", "timestamp_ms", "truck_id", "latitude", "longitude", "altitude", "speed", "heading",
	"satellites", "axis_x", "axis_y", "axis_z", "ignition", "movement", "external_voltage",
	"battery_voltage", "din1", "din2", "analog_input1", "total_odometer", "gsm_signal",
	"segment_id", "is_loaded", "raw_record", "processed",
}

func scanTelemetry(row interface{ Scan(...interface{}) error }) (*schema.TruckTelemetry, error) {
	var t schema.TruckTelemetry
	if err := row.Scan(
		&t.ID, &t.TimestampMs, &t.TruckID, &t.Latitude, &t.Longitude, &t.Altitude, &t.Speed, &t.Heading,
		&t.Satellites, &t.AxisX, &t.AxisY, &t.AxisZ, &t.Ignition, &t.Movement, &t.ExternalVoltage,
		&t.BatteryVoltage, &t.Din1, &t.Din2, &t.AnalogInput1, &t.TotalOdometer, &t.GsmSignal,
		&t.SegmentID, &t.IsLoaded, &t.RawRecord, &t.Processed,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
