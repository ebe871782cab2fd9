// Package scheduler registers the two periodic background tasks — the
// event detector (every 15 minutes) and the statistics aggregator
// (daily) — on a gocron/v2 scheduler, using a package-level scheduler
// instance shared by both registrations.
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Faryzal2020/road-roughness-monitoring/internal/eventdetect"
	"github.com/Faryzal2020/road-roughness-monitoring/internal/statsaggregate"
	"github.com/Faryzal2020/road-roughness-monitoring/pkg/log"
)

var s gocron.Scheduler

// Start creates the scheduler and registers both periodic tasks, then
// starts it. eventInterval is the event detector's cadence (default
// 15 min); aggregateHour/Minute is the statistics aggregator's daily
// run time (default 02:00).
func Start(detector *eventdetect.Detector, aggregator *statsaggregate.Aggregator, eventInterval time.Duration, aggregateHour, aggregateMinute int) error {
	var err error
	s, err = gocron.NewScheduler()
	if err != nil {
		return err
	}

	registerEventDetector(detector, eventInterval)
	registerStatsAggregator(aggregator, aggregateHour, aggregateMinute)

	s.Start()
	return nil
}

// Shutdown stops the scheduler, letting in-flight jobs finish.
func Shutdown() error {
	if s == nil {
		return nil
	}
	return s.Shutdown()
}

func registerEventDetector(detector *eventdetect.Detector, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	_, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := detector.Run(); err != nil {
				log.Errorf("scheduler: event detector run failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Errorf("scheduler: could not register event detector job: %v", err)
	}
}

func registerStatsAggregator(aggregator *statsaggregate.Aggregator, hour, minute int) {
	_, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(func() {
			yesterday := time.Now().UTC().AddDate(0, 0, -1)
			if err := aggregator.Run(yesterday); err != nil {
				log.Errorf("scheduler: stats aggregator run failed: %v", err)
			}
		}),
	)
	if err != nil {
		log.Errorf("scheduler: could not register stats aggregator job: %v", err)
	}
}
