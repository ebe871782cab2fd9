// Command gateway runs the fleet telemetry ingestion server: it
// accepts Teltonika Codec8/Codec8-Extended device connections, persists
// decoded telemetry, and runs the periodic event-detection and
// statistics-aggregation tasks.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/config"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/devicecache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/eventbus"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/eventdetect"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/ingest"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/repository"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/roughness"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/scheduler"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentcache"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/segmentresolver"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/session"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/statsaggregate"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

// defaultNegativeTTL bounds the device cache's negative-hit TTL at 30s,
// independent of the (possibly longer) positive TTL.
const defaultNegativeTTL = 30 * time.Second

func main() {
	var flagEnvFile, flagLogLevel string
	var flagNoServer bool
	flag.StringVar(&flagEnvFile, "env", "./.env", "Load configuration overrides from `file`")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of: debug, info, notice, warn, err, crit")
	flag.BoolVar(&flagNoServer, "no-server", false, "Initialize everything, then exit without accepting connections (for smoke-testing the db/config)")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)
	config.Init(flagEnvFile)
	cfg := config.Keys

	repo, err := repository.Connect(cfg.DBSource)
	if err != nil {
		log.Fatalf("gateway: db connect failed: %v", err)
	}
	defer repo.Close()

	bus, err := eventbus.Connect(cfg.NatsAddress)
	if err != nil {
		log.Warnf("gateway: event bus unavailable, events will not be published: %v", err)
		bus = nil
	}
	defer bus.Close()

	devices := devicecache.New(repo, cfg.ImeiCacheMax, cfg.ImeiCacheTTL(), minDuration(cfg.ImeiCacheTTL(), defaultNegativeTTL))
	// The spatial backend is external; a static resolver with no
	// segments is wired in by default so ingestion degrades to
	// "every telemetry row has segmentId=null" rather than failing to
	// start. A real deployment supplies its own segmentresolver.Resolver.
	segments := segmentcache.New(segmentresolver.NewStaticResolver(nil), cfg.SegmentCacheMax, cfg.ImeiCacheTTL(), cfg.SegmentProximityM)

	ingestor := ingest.New(devices, segments, repo)

	detector := eventdetect.New(repo, bus, eventdetect.Thresholds{
		MediumMg:   cfg.RoughnessMediumMg,
		HighMg:     cfg.RoughnessHighMg,
		CriticalMg: cfg.RoughnessCriticalMg,
	}, cfg.EventBatch)

	iriThresholds := roughness.IriThresholds{
		Good:             cfg.IriGood,
		Fair:             cfg.IriFair,
		Poor:             cfg.IriPoor,
		K:                cfg.IriK,
		SpeedBaselineKmh: cfg.IriSpeedBaselineKmh,
	}
	aggregator := statsaggregate.New(repo, iriThresholds)

	if err := scheduler.Start(detector, aggregator, cfg.EventInterval(), cfg.AggregateCronHour, cfg.AggregateCronMinute); err != nil {
		log.Fatalf("gateway: scheduler start failed: %v", err)
	}
	defer scheduler.Shutdown()

	if flagNoServer {
		log.Info("gateway: -no-server set, exiting after initialization")
		return
	}

	srv := session.New(session.Config{
		FrameCapBytes:   cfg.FrameCapBytes,
		IdleTimeout:     cfg.SessionIdleTimeout(),
		Workers:         32,
		RateBytesPerSec: float64(cfg.FrameCapBytes),
	}, ingestor)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.TCPPort))
	if err != nil {
		log.Fatalf("gateway: listen on port %d failed: %v", cfg.TCPPort, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ln); err != nil {
			log.Errorf("gateway: serve failed: %v", err)
		}
	}()

	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		log.Info("gateway: shutting down")
		ln.Close()
		srv.Close()
	}()

	log.Infof("gateway: listening on :%d", cfg.TCPPort)
	wg.Wait()
	log.Info("gateway: graceful shutdown complete")
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
