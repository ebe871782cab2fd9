// Package config holds the process-wide configuration, loaded from
// environment variables over a set of defaults, following the
// teacher's package-level Keys + Init pattern.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

// Config is the full set of process tunables.
type Config struct {
	TCPPort int

	FrameCapBytes  int
	SessionIdleMs  int

	ImeiCacheTTLMs int
	ImeiCacheMax   int

	SegmentCacheMax   int
	SegmentProximityM float64

	RoughnessMediumMg   int32
	RoughnessHighMg     int32
	RoughnessCriticalMg int32

	IriGood             float64
	IriFair             float64
	IriPoor             float64
	IriK                float64
	IriSpeedBaselineKmh float64

	EventBatch      int
	EventIntervalMs int

	AggregateCronHour   int
	AggregateCronMinute int

	DBDriver string
	DBSource string

	NatsAddress string
}

// Keys is the process-wide configuration, populated by Init.
var Keys = Default()

// Default returns the configuration with every field set to its
// out-of-the-box default.
func Default() Config {
	return Config{
		TCPPort: 5027,

		FrameCapBytes: 1_048_576,
		SessionIdleMs: 300_000,

		ImeiCacheTTLMs: 300_000,
		ImeiCacheMax:   10_000,

		SegmentCacheMax:   1000,
		SegmentProximityM: 50,

		RoughnessMediumMg:   2000,
		RoughnessHighMg:     2500,
		RoughnessCriticalMg: 3500,

		IriGood:             2.5,
		IriFair:             4,
		IriPoor:             6,
		IriK:                15.0,
		IriSpeedBaselineKmh: 30,

		EventBatch:      1000,
		EventIntervalMs: 900_000,

		AggregateCronHour:   2,
		AggregateCronMinute: 0,

		DBDriver: "sqlite3",
		DBSource: "./var/telemetry.db",
	}
}

// Init loads a .env file if present (never fatal if absent) and then
// overrides Keys field-by-field from environment variables. Unset
// variables keep their default.
func Init(envFile string) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: could not load %s: %v", envFile, err)
	}

	cfg := Default()

	intVar(&cfg.TCPPort, "TCP_PORT")
	intVar(&cfg.FrameCapBytes, "FRAME_CAP_BYTES")
	intVar(&cfg.SessionIdleMs, "SESSION_IDLE_MS")
	intVar(&cfg.ImeiCacheTTLMs, "IMEI_CACHE_TTL_MS")
	intVar(&cfg.ImeiCacheMax, "IMEI_CACHE_MAX")
	intVar(&cfg.SegmentCacheMax, "SEGMENT_CACHE_MAX")
	floatVar(&cfg.SegmentProximityM, "SEGMENT_PROXIMITY_M")
	int32Var(&cfg.RoughnessMediumMg, "ROUGHNESS_MEDIUM_MG")
	int32Var(&cfg.RoughnessHighMg, "ROUGHNESS_HIGH_MG")
	int32Var(&cfg.RoughnessCriticalMg, "ROUGHNESS_CRITICAL_MG")
	floatVar(&cfg.IriGood, "IRI_GOOD")
	floatVar(&cfg.IriFair, "IRI_FAIR")
	floatVar(&cfg.IriPoor, "IRI_POOR")
	floatVar(&cfg.IriK, "IRI_K")
	floatVar(&cfg.IriSpeedBaselineKmh, "IRI_SPEED_BASELINE_KMH")
	intVar(&cfg.EventBatch, "EVENT_BATCH")
	intVar(&cfg.EventIntervalMs, "EVENT_INTERVAL_MS")
	stringVar(&cfg.DBDriver, "DB_DRIVER")
	stringVar(&cfg.DBSource, "DB_SOURCE")
	stringVar(&cfg.NatsAddress, "NATS_ADDRESS")

	Keys = cfg
}

func intVar(dst *int, name string) {
	if raw, ok := os.LookupEnv(name); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			*dst = v
		} else {
			log.Warnf("config: invalid int for %s=%q: %v", name, raw, err)
		}
	}
}

func int32Var(dst *int32, name string) {
	if raw, ok := os.LookupEnv(name); ok {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil {
			*dst = int32(v)
		} else {
			log.Warnf("config: invalid int32 for %s=%q: %v", name, raw, err)
		}
	}
}

func floatVar(dst *float64, name string) {
	if raw, ok := os.LookupEnv(name); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*dst = v
		} else {
			log.Warnf("config: invalid float for %s=%q: %v", name, raw, err)
		}
	}
}

func stringVar(dst *string, name string) {
	if raw, ok := os.LookupEnv(name); ok {
		*dst = raw
	}
}

// SessionIdleTimeout returns SessionIdleMs as a time.Duration.
func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMs) * time.Millisecond
}

// ImeiCacheTTL returns ImeiCacheTTLMs as a time.Duration.
func (c Config) ImeiCacheTTL() time.Duration {
	return time.Duration(c.ImeiCacheTTLMs) * time.Millisecond
}

// EventInterval returns EventIntervalMs as a time.Duration.
func (c Config) EventInterval() time.Duration {
	return time.Duration(c.EventIntervalMs) * time.Millisecond
}
