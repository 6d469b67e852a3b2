package weather

import (
	"context"
	"time"
)

// LocationReport is one location's normalized forecast response.
type LocationReport struct {
	Location    Location
	Observation *Record
	Forecast    []*Record
}

// ForecastSource fetches point forecasts and current observations.
type ForecastSource interface {
	Name() string
	FetchLocation(ctx context.Context, loc Location) (LocationReport, error)
}

// TelemetrySource fetches station readings for a time window.
type TelemetrySource interface {
	Name() string
	FetchTelemetry(ctx context.Context, stations []int, w Window) ([]*Record, error)
}

// Store is the contract the persistent table store must satisfy.
type Store interface {
	// Probe reports whether table exists and its latest timeColumn value.
	Probe(ctx context.Context, table, timeColumn string) (Probe, error)
	// Columns returns the table's columns in table order.
	Columns(ctx context.Context, table string) ([]string, error)
	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of table writes available inside a transaction.
type Tx interface {
	CreateTable(ctx context.Context, table string, cols []ColumnDef) error
	AddColumns(ctx context.Context, table string, cols []ColumnDef) error
	DeleteFrom(ctx context.Context, table, timeColumn string, from time.Time) (int64, error)
	Insert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Recorder receives ingestion measurements.
type Recorder interface {
	ObserveFetch(provider string, err error)
	ObserveMerge(res MergeResult)
	ObserveRun(d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, error) {}

func (nopRecorder) ObserveMerge(MergeResult) {}

func (nopRecorder) ObserveRun(time.Duration, error) {}
