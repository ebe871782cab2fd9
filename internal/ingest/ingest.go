// Package ingest implements the ingestion service: it turns one
// decoded codec.Packet plus the session's device identifier into
// persisted TruckTelemetry rows, resolving the owning truck and road
// segment for each record along the way.
package ingest

import (
	"fmt"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/codec"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/devicecache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingesterr"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/iomap"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/metrics"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentcache"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/schema"
)

// Result reports how many records of a packet were actually written.
type Result struct {
	RecordsProcessed int
	RecordsSkipped   int
}

// Service wires the validator, segment resolver and repository into
// a single ingest entry point.
type Service struct {
	devices  *devicecache.Cache
	segments *segmentcache.Cache
	repo     repository.Repository
}

func New(devices *devicecache.Cache, segments *segmentcache.Cache, repo repository.Repository) *Service {
	return &Service{devices: devices, segments: segments, repo: repo}
}

// Ingest maps, enriches and persists every record of packet, attributed
// to the device identified by identifier.
//
// An Unregistered device surfaces ingesterr.ErrUnauthorizedDevice: the
// caller (internal/session) keeps the connection open, it just
// doesn't persist anything for this packet.
func (s *Service) Ingest(packet *codec.Packet, identifier string) (Result, error) {
	truck, err := s.devices.Resolve(identifier)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: resolve device %q: %w", identifier, err)
	}
	if truck == nil {
		metrics.IncUnauthorizedPackets()
		return Result{}, ingesterr.ErrUnauthorizedDevice
	}

	rows := make([]*schema.TruckTelemetry, 0, len(packet.Records))
	for _, rec := range packet.Records {
		rows = append(rows, s.buildRow(rec, truck.ID))
	}

	insertResult, err := s.repo.InsertTelemetryBatch(rows)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: persist batch for truck %d: %w", truck.ID, ingesterr.ErrRepository)
	}

	metrics.IncIngested(insertResult.Inserted)
	metrics.IncDuplicatesSkipped(insertResult.Skipped)

	return Result{
		RecordsProcessed: insertResult.Inserted,
		RecordsSkipped:   insertResult.Skipped,
	}, nil
}

// buildRow maps one record's IO elements, resolves its segment and
// computes isLoaded.
func (s *Service) buildRow(rec codec.Record, truckID int64) *schema.TruckTelemetry {
	fields := iomap.Map(rec.IOElements)

	row := &schema.TruckTelemetry{
		TimestampMs:   rec.Timestamp.UnixMilli(),
		TruckID:       truckID,
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		Altitude:      rec.Altitude,
		Speed:         rec.Speed,
		Heading:       rec.Heading,
		Satellites:    rec.Satellites,
		RawRecord:     schema.RawRecordBlob(rawRecordMap(rec, fields)),
		Processed:     false,
	}

	if fields.AxisX != nil {
		row.AxisX = int32(*fields.AxisX)
	}
	if fields.AxisY != nil {
		row.AxisY = int32(*fields.AxisY)
	}
	if fields.AxisZ != nil {
		row.AxisZ = int32(*fields.AxisZ)
	}
	if fields.Ignition != nil {
		row.Ignition = *fields.Ignition != 0
	}
	if fields.Movement != nil {
		row.Movement = *fields.Movement != 0
	}
	if fields.ExternalVoltage != nil {
		row.ExternalVoltage = int32(*fields.ExternalVoltage)
	}
	if fields.BatteryVoltage != nil {
		row.BatteryVoltage = int32(*fields.BatteryVoltage)
	}
	if fields.Din1 != nil {
		row.Din1 = int32(*fields.Din1)
	}
	if fields.Din2 != nil {
		row.Din2 = int32(*fields.Din2)
	}
	if fields.AnalogInput1 != nil {
		row.AnalogInput1 = int32(*fields.AnalogInput1)
	}
	if fields.TotalOdometer != nil {
		row.TotalOdometer = *fields.TotalOdometer
	}
	if fields.GsmSignal != nil {
		row.GsmSignal = int32(*fields.GsmSignal)
	}

	// isLoaded is the truthiness of din1; a record with no din1
	// element leaves IsLoaded unset rather than defaulting to false.
	if fields.Din1 != nil {
		loaded := *fields.Din1 != 0
		row.IsLoaded = &loaded
	}

	segmentID, err := s.segments.Resolve(degrees(rec.Latitude), degrees(rec.Longitude))
	if err != nil {
		// Soft-fail: segment stays nil, ingestion continues.
		log.Warnf("ingest: segment resolve failed for truck %d: %v", truckID, err)
	} else {
		row.SegmentID = segmentID
	}

	return row
}

// degrees converts a record's int32 lat/lon (degrees * 1e7) to
// floating-point degrees for spatial queries.
func degrees(v int32) float64 {
	return float64(v) / 1e7
}

func rawRecordMap(rec codec.Record, fields iomap.Fields) map[string]any {
	m := map[string]any{
		"timestampMs": rec.Timestamp.UnixMilli(),
		"priority":    rec.Priority,
		"latitude":    rec.Latitude,
		"longitude":   rec.Longitude,
		"altitude":    rec.Altitude,
		"heading":     rec.Heading,
		"satellites":  rec.Satellites,
		"speed":       rec.Speed,
	}
	for id, v := range fields.Unknown {
		m[fmt.Sprintf("io_%d", id)] = v
	}
	return m
}
