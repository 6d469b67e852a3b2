package weather

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/singleflight"
)

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Tables    []MergeResult `json:"tables"`
	// Warnings collects the units whose fetch failed. They do not fail
	// the run.
	Warnings *multierror.Error `json:"-"`
}

// WarningMessages returns one message per failed unit.
func (r RunReport) WarningMessages() []string {
	if r.Warnings == nil {
		return []string{}
	}
	out := make([]string, 0, len(r.Warnings.Errors))
	for _, err := range r.Warnings.Errors {
		out = append(out, err.Error())
	}
	return out
}

func (r *RunReport) warn(err error) {
	r.Warnings = multierror.Append(r.Warnings, err)
}

// Service orchestrates fetching from both providers and merging the
// results into the store.
type Service struct {
	store     Store
	merger    *Merger
	forecast  ForecastSource
	telemetry TelemetrySource
	sites     Sites
	windows   WindowPolicy
	recorder  Recorder
	now       func() time.Time
	flight    singleflight.Group
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithWindowPolicy(p WindowPolicy) Option {
	return func(s *Service) { s.windows = p }
}

// NewService creates a new Service. Either source may be nil, in which
// case its tables are not updated.
func NewService(store Store, forecast ForecastSource, telemetry TelemetrySource, sites Sites, opts ...Option) *Service {
	s := &Service{
		store:     store,
		merger:    NewMerger(store),
		forecast:  forecast,
		telemetry: telemetry,
		sites:     sites,
		windows:   DefaultWindowPolicy(),
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one full ingestion. Concurrent callers share the run in
// flight instead of starting another.
func (s *Service) Run(ctx context.Context) (RunReport, error) {
	v, err, shared := s.flight.Do("run", func() (interface{}, error) {
		return s.run(ctx)
	})
	if shared {
		log.Printf("DEBUG: joined ingestion run already in flight")
	}
	report, _ := v.(RunReport)
	return report, err
}

func (s *Service) run(ctx context.Context) (RunReport, error) {
	started := s.now().UTC()
	report := RunReport{RunID: uuid.NewString(), StartedAt: started}
	log.Printf("INFO: ingestion run %s started", report.RunID)

	err := s.UpdateForecasts(ctx, started, &report)
	if err == nil {
		err = s.UpdateTelemetry(ctx, started, &report)
	}

	elapsed := s.now().UTC().Sub(started)
	s.recorder.ObserveRun(elapsed, err)
	if err != nil {
		log.Printf("ERROR: ingestion run %s failed: %v", report.RunID, err)
		return report, err
	}
	log.Printf("INFO: ingestion run %s completed in %s with %d warnings", report.RunID, elapsed, len(report.WarningMessages()))
	return report, nil
}

// UpdateForecasts fetches every configured location and merges the
// forecast and observation batches.
func (s *Service) UpdateForecasts(ctx context.Context, started time.Time, report *RunReport) error {
	if s.forecast == nil {
		return nil
	}

	var observations, forecasts []*Record
	for _, loc := range s.sites.Locations {
		r, err := s.forecast.FetchLocation(ctx, loc)
		s.recorder.ObserveFetch(s.forecast.Name(), err)
		if err != nil {
			// Log and continue; one location must not abort the run.
			log.Printf("ERROR: provider %s fetch failed for %s: %v", s.forecast.Name(), loc.Key(), err)
			report.warn(fmt.Errorf("%s %s: %w", s.forecast.Name(), loc.Key(), err))
			continue
		}
		if r.Observation != nil {
			observations = append(observations, r.Observation)
		}
		forecasts = append(forecasts, r.Forecast...)
	}

	log.Printf("DEBUG: forecasts: %d", len(forecasts))
	if err := s.mergeBatch(ctx, ForecastTarget, ForecastCoercer, forecasts, started, time.Time{}, report); err != nil {
		return err
	}

	log.Printf("DEBUG: observations: %d", len(observations))
	return s.mergeBatch(ctx, ObservationTarget, ObservationCoercer, observations, started, time.Time{}, report)
}

// UpdateTelemetry fetches the telemetry window implied by the table's
// state and merges it.
func (s *Service) UpdateTelemetry(ctx context.Context, started time.Time, report *RunReport) error {
	if s.telemetry == nil {
		return nil
	}

	probe, err := s.store.Probe(ctx, TelemetryTarget.Table, TelemetryTarget.TimeColumn)
	if err != nil {
		return storeErr(TelemetryTarget.Table, "probe", err)
	}
	if probe.State == NoTable {
		log.Printf("INFO: %s does not exist yet; fetching full lookback", TelemetryTarget.Table)
	}

	w := s.windows.Telemetry(started, probe)
	log.Printf("INFO: getting data from %s to %s", w.Start.Format(time.DateTime), w.End.Format(time.DateTime))

	rows, err := s.telemetry.FetchTelemetry(ctx, s.sites.Stations, w)
	s.recorder.ObserveFetch(s.telemetry.Name(), err)
	if err != nil {
		log.Printf("ERROR: provider %s fetch failed: %v", s.telemetry.Name(), err)
		report.warn(fmt.Errorf("%s: %w", s.telemetry.Name(), err))
		return nil
	}

	return s.mergeBatch(ctx, TelemetryTarget, TelemetryCoercer, rows, started, w.Start, report)
}

func (s *Service) mergeBatch(ctx context.Context, t Target, c Coercer, rows []*Record, started, from time.Time, report *RunReport) error {
	b := NewBatch(rows)
	if b.Len() > 0 {
		if n := c.Apply(b, started); n > 0 {
			log.Printf("DEBUG: %s: %d values could not be parsed and were stored as missing", t.Table, n)
		}
	}

	res, err := s.merger.Merge(ctx, t, b, from)
	if err != nil {
		return err
	}
	s.recorder.ObserveMerge(res)
	report.Tables = append(report.Tables, res)
	return nil
}
