package weather

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Column name patterns whose values carry numeric semantics.
var (
	ForecastNumeric    = regexp.MustCompile(`(latit|longi|eleva|chance|temp$)`)
	ObservationNumeric = regexp.MustCompile(`(latit|longi|elev|chance|temp$|dewp|relh|wind|gust|visibility|altimeter)`)
)

// Coercers used for each persisted table. Telemetry values arrive typed
// from the provider, so only its timestamps are parsed.
var (
	ForecastCoercer    = Coercer{Numeric: ForecastNumeric, Timestamps: []string{ColumnDateTime, ColumnCreationDate}}
	ObservationCoercer = Coercer{Numeric: ObservationNumeric, Timestamps: []string{ColumnCreationDate}}
	TelemetryCoercer   = Coercer{Timestamps: []string{ColumnDateTime}}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Coercer converts a batch's values to the types their column names imply.
type Coercer struct {
	Numeric    *regexp.Regexp
	Timestamps []string
}

// Apply coerces b in place and stamps every row with createdAt. It
// returns how many present values could not be parsed and became missing.
func (c Coercer) Apply(b *Batch, createdAt time.Time) int {
	missing := 0
	for _, col := range b.Columns {
		var parse func(any) (any, bool)
		switch {
		case c.isTimestamp(col):
			parse = func(v any) (any, bool) { return ParseTimestamp(v) }
		case c.Numeric != nil && c.Numeric.MatchString(col):
			parse = func(v any) (any, bool) { return ParseNumber(v) }
		default:
			continue
		}
		for _, r := range b.Rows {
			v, ok := r.Get(col)
			if !ok || v == nil {
				continue
			}
			parsed, ok := parse(v)
			if !ok {
				r.Set(col, nil)
				missing++
				continue
			}
			r.Set(col, parsed)
		}
	}

	b.AddColumn(ColumnCreatedAt)
	stamp := createdAt.UTC()
	for _, r := range b.Rows {
		r.Set(ColumnCreatedAt, stamp)
	}
	return missing
}

func (c Coercer) isTimestamp(col string) bool {
	for _, t := range c.Timestamps {
		if sameColumn(t, col) {
			return true
		}
	}
	return false
}

// ParseNumber interprets v as a float. NaN and infinities are rejected.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseTimestamp interprets v as an instant and returns it in UTC with
// the zone dropped. Strings without an offset are read as UTC.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
