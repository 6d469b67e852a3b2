package weather

import (
	"strings"
	"time"
)

// Persisted table names and the columns the merge engine relies on.
const (
	TableForecast    = "noaa_forecast"
	TableObservation = "noaa_observation"
	TableTelemetry   = "nwac_telemetry"

	ColumnDateTime     = "date_time"
	ColumnCreationDate = "creation_date"
	ColumnCreatedAt    = "created_at"
)

// Location represents a named forecast point.
type Location struct {
	Name string  `json:"name" yaml:"name" validate:"required"`
	Lat  float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lon  float64 `json:"lon" yaml:"lon" validate:"longitude"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.Name
}

// Sites is the immutable reference data a run fetches for.
type Sites struct {
	Locations []Location `json:"locations" validate:"required,dive"`
	Stations  []int      `json:"stations" validate:"required,dive,gt=0"`
}

// Record is one flat row. Values are nil (missing), string, float64,
// int64, bool or time.Time. Keys keep insertion order.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores v under key, appending the key if it is new.
func (r *Record) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value under key, or nil when absent.
func (r *Record) Value(key string) any {
	return r.values[key]
}

// Keys returns the record's columns in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   append([]string(nil), r.keys...),
		values: make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// ColumnType is the storage type of a table column.
type ColumnType string

const (
	TypeDouble    ColumnType = "DOUBLE"
	TypeBigint    ColumnType = "BIGINT"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeVarchar   ColumnType = "VARCHAR"
)

// ColumnDef names a column and its storage type.
type ColumnDef struct {
	Name string
	Type ColumnType
}

func inferType(v any) (ColumnType, bool) {
	switch v.(type) {
	case nil:
		return "", false
	case float64, float32:
		return TypeDouble, true
	case int, int32, int64:
		return TypeBigint, true
	case bool:
		return TypeBoolean, true
	case time.Time:
		return TypeTimestamp, true
	default:
		return TypeVarchar, true
	}
}

func sameColumn(a, b string) bool {
	return strings.EqualFold(a, b)
}
