// Package schema defines the persistence-facing data model shared by
// the ingestion and derivation pipelines.
package schema

import "encoding/json"

// TruckStatus is a Truck's lifecycle state.
type TruckStatus string

const (
	TruckActive      TruckStatus = "ACTIVE"
	TruckMaintenance TruckStatus = "MAINTENANCE"
	TruckRetired     TruckStatus = "RETIRED"
)

// Truck is owned by the administrative store; the ingestion pipeline
// only ever reads it.
type Truck struct {
	ID         int64       `db:"id" json:"id,string"`
	Identifier string      `db:"identifier" json:"identifier"`
	Status     TruckStatus `db:"status" json:"status"`
}

// TruckTelemetry is one decoded, enriched AVL record. Id is 64-bit to
// allow indefinite growth; it is serialized to JSON as a string so
// JavaScript consumers don't lose precision.
type TruckTelemetry struct {
	ID              int64   `db:"id" json:"id,string"`
	TimestampMs     int64   `db:"timestamp_ms" json:"timestampMs"`
	TruckID         int64   `db:"truck_id" json:"truckId,string"`
	Latitude        int32   `db:"latitude" json:"latitude"`
	Longitude       int32   `db:"longitude" json:"longitude"`
	Altitude        int16   `db:"altitude" json:"altitude"`
	Speed           uint16  `db:"speed" json:"speed"`
	Heading         uint16  `db:"heading" json:"heading"`
	Satellites      uint8   `db:"satellites" json:"satellites"`
	AxisX           int32   `db:"axis_x" json:"axisX"`
	AxisY           int32   `db:"axis_y" json:"axisY"`
	AxisZ           int32   `db:"axis_z" json:"axisZ"`
	Ignition        bool    `db:"ignition" json:"ignition"`
	Movement        bool    `db:"movement" json:"movement"`
	ExternalVoltage int32   `db:"external_voltage" json:"externalVoltage"`
	BatteryVoltage  int32   `db:"battery_voltage" json:"batteryVoltage"`
	Din1            int32   `db:"din1" json:"din1"`
	Din2            int32   `db:"din2" json:"din2"`
	AnalogInput1    int32   `db:"analog_input1" json:"analogInput1"`
	TotalOdometer   int64   `db:"total_odometer" json:"totalOdometer"`
	GsmSignal       int32   `db:"gsm_signal" json:"gsmSignal"`
	SegmentID       *int64  `db:"segment_id" json:"segmentId,string,omitempty"`
	IsLoaded        *bool   `db:"is_loaded" json:"isLoaded,omitempty"`
	RawRecord       []byte  `db:"raw_record" json:"rawRecord,omitempty"` // JSON-encoded key/value blob
	Processed       bool    `db:"processed" json:"processed"`
}

// Severity is a roughness event's classification.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// Max returns the greater of s and other under LOW<MEDIUM<HIGH<CRITICAL.
func (s Severity) Max(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// RoughnessEvent is a derived record produced by the event detector.
// Severity is the maximum severity observed across the event's
// samples.
type RoughnessEvent struct {
	ID          int64    `db:"id" json:"id,string"`
	TimestampMs int64    `db:"timestamp_ms" json:"timestampMs"`
	DurationMs  int64    `db:"duration_ms" json:"durationMs"`
	TruckID     int64    `db:"truck_id" json:"truckId,string"`
	Latitude    int32    `db:"latitude" json:"latitude"`
	Longitude   int32    `db:"longitude" json:"longitude"`
	SegmentID   *int64   `db:"segment_id" json:"segmentId,string,omitempty"`
	EventType   string   `db:"event_type" json:"eventType"`
	Severity    Severity `db:"severity" json:"severity"`
	PeakX       int32    `db:"peak_x" json:"peakX"`
	PeakY       int32    `db:"peak_y" json:"peakY"`
	PeakZ       int32    `db:"peak_z" json:"peakZ"`
	Speed       uint16   `db:"speed" json:"speed"`
	IsLoaded    *bool    `db:"is_loaded" json:"isLoaded,omitempty"`
}

// RoadSegmentStats is the daily per-segment rollup produced by the
// statistics aggregator. Unique on (SegmentID, Date).
type RoadSegmentStats struct {
	ID               int64   `db:"id" json:"id,string"`
	SegmentID        int64   `db:"segment_id" json:"segmentId,string"`
	Date             string  `db:"date" json:"date"` // YYYY-MM-DD, UTC
	TotalPasses      int64   `db:"total_passes" json:"totalPasses"`
	LoadedPasses     int64   `db:"loaded_passes" json:"loadedPasses"`
	AvgSpeed         float64 `db:"avg_speed" json:"avgSpeed"`
	StdDevZ          float64 `db:"std_dev_z" json:"stdDevZ"`
	Iri              float64 `db:"iri" json:"iri"`
	IriCategory      string  `db:"iri_category" json:"iriCategory"`
	TotalEvents      int64   `db:"total_events" json:"totalEvents"`
	CriticalEvents   int64   `db:"critical_events" json:"criticalEvents"`
}

// RawRecordBlob marshals an arbitrary scalar/array key-value map into
// the JSON-equivalent blob stored alongside a TruckTelemetry row for
// diagnostics.
func RawRecordBlob(m map[string]any) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
