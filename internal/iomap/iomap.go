// Package iomap translates the numeric AVL IO element ids decoded by
// internal/codec into named fields. It is a pure function over a
// configuration table; values are never rescaled here.
package iomap

import "github.com/Faryzal2020/road-roughness-monitoring/internal/codec"

// fieldIDs is the id -> name table for the fields this gateway cares about.
var fieldIDs = map[uint16]string{
	1:   "din1",
	9:   "din2",
	66:  "externalVoltage",
	67:  "batteryVoltage",
	21:  "gsmSignal",
	17:  "axisX",
	18:  "axisY",
	19:  "axisZ",
	239: "ignition",
	240: "movement",
	241: "activeGsmOperator",
	199: "totalOdometer",
	13:  "analogInput1",
}

// Fields is the named view of one record's IO elements. Scalars are
// stored as int64: every fixed-width value, named or unknown, is
// sign-extended from its group width (see signExtend), so an unsigned
// reading whose top bit is set comes out negative. Unknown holds every
// id this table does not recognize, so nothing decoded is ever
// silently dropped.
type Fields struct {
	Din1              *int64
	Din2              *int64
	ExternalVoltage   *int64
	BatteryVoltage    *int64
	GsmSignal         *int64
	AxisX             *int64
	AxisY             *int64
	AxisZ             *int64
	Ignition          *int64
	Movement          *int64
	ActiveGsmOperator *int64
	TotalOdometer     *int64
	AnalogInput1      *int64
	Unknown           map[uint16]int64
}

// Map builds a Fields structure from the raw IO elements of one decoded
// record. Values from the variable-width group (codec.IOElement.Raw)
// are ignored: every named field here is a fixed-width scalar.
func Map(elements []codec.IOElement) Fields {
	f := Fields{Unknown: map[uint16]int64{}}

	for _, el := range elements {
		if el.Raw != nil {
			continue
		}

		v := signExtend(el.Value, el.Width)
		name, known := fieldIDs[el.ID]
		if !known {
			f.Unknown[el.ID] = v
			continue
		}

		switch name {
		case "din1":
			f.Din1 = &v
		case "din2":
			f.Din2 = &v
		case "externalVoltage":
			f.ExternalVoltage = &v
		case "batteryVoltage":
			f.BatteryVoltage = &v
		case "gsmSignal":
			f.GsmSignal = &v
		case "axisX":
			f.AxisX = &v
		case "axisY":
			f.AxisY = &v
		case "axisZ":
			f.AxisZ = &v
		case "ignition":
			f.Ignition = &v
		case "movement":
			f.Movement = &v
		case "activeGsmOperator":
			f.ActiveGsmOperator = &v
		case "totalOdometer":
			f.TotalOdometer = &v
		case "analogInput1":
			f.AnalogInput1 = &v
		}
	}

	return f
}

// signExtend reinterprets a raw wire value as a signed integer using
// two's complement over its group width (1, 2, 4 or 8 bytes), the
// convention Teltonika devices use for axis/altitude-like fields.
func signExtend(v uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}
