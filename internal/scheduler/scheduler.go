package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-ingest/internal/weather"
)

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (weather.RunReport, error)
}

// Scheduler periodically runs ingestion.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
}

// New creates a new Scheduler.
func New(interval time.Duration, runner Runner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run starts immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: no interval configured; ingestion runs only on demand")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		log.Println("scheduler: running ingestion job")

		report, err := s.runner.Run(context.Background())
		if err != nil {
			log.Printf("scheduler: ingestion run %s failed: %v", report.RunID, err)
			return
		}
		log.Printf("scheduler: completed ingestion run %s", report.RunID)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
