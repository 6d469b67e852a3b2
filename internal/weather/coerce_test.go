package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func TestCoercerNumericColumns(t *testing.T) {
	b := NewBatch([]*Record{
		row("location_latitude", "46.786", "precip_chance", "", "temp", "45", "temp_label", "High", "weather", "Snow"),
		row("location_latitude", 47.0, "precip_chance", "20", "temp", "NA", "temp_label", "Low", "weather", "Rain"),
	})

	missing := ForecastCoercer.Apply(b, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))

	assert.Equal(t, 2, missing)
	assert.Equal(t, 46.786, b.Rows[0].Value("location_latitude"))
	assert.Nil(t, b.Rows[0].Value("precip_chance"))
	assert.Equal(t, 45.0, b.Rows[0].Value("temp"))
	assert.Equal(t, "High", b.Rows[0].Value("temp_label"))
	assert.Equal(t, "Snow", b.Rows[0].Value("weather"))

	assert.Equal(t, 47.0, b.Rows[1].Value("location_latitude"))
	assert.Equal(t, 20.0, b.Rows[1].Value("precip_chance"))
	assert.Nil(t, b.Rows[1].Value("temp"))
}

func TestCoercerObservationPattern(t *testing.T) {
	b := NewBatch([]*Record{
		row("dewp", "28", "relh", "85", "winds", "NA", "gust", "x", "visibility", "10.00", "altimeter", "1018.6", "name", "Paradise"),
	})

	ObservationCoercer.Apply(b, time.Now())

	r := b.Rows[0]
	assert.Equal(t, 28.0, r.Value("dewp"))
	assert.Equal(t, 85.0, r.Value("relh"))
	assert.Nil(t, r.Value("winds"))
	assert.Nil(t, r.Value("gust"))
	assert.Equal(t, 10.0, r.Value("visibility"))
	assert.Equal(t, 1018.6, r.Value("altimeter"))
	assert.Equal(t, "Paradise", r.Value("name"))
}

func TestCoercerTimestampsAreNaiveUTC(t *testing.T) {
	b := NewBatch([]*Record{
		row("date_time", "2026-10-19T18:00:00-07:00", "creation_date", "2026-10-19T09:12:43-07:00"),
		row("date_time", "2026-10-20T01:00:00-0700", "creation_date", "bogus"),
	})

	ForecastCoercer.Apply(b, time.Now())

	assert.Equal(t, time.Date(2026, 10, 20, 1, 0, 0, 0, time.UTC), b.Rows[0].Value("date_time"))
	assert.Equal(t, time.Date(2026, 10, 19, 16, 12, 43, 0, time.UTC), b.Rows[0].Value("creation_date"))
	assert.Equal(t, time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC), b.Rows[1].Value("date_time"))
	assert.Nil(t, b.Rows[1].Value("creation_date"))
}

func TestCoercerStampsCreatedAt(t *testing.T) {
	started := time.Date(2026, 10, 19, 10, 30, 0, 0, time.FixedZone("PDT", -7*3600))
	b := NewBatch([]*Record{row("a", "1"), row("b", "2")})

	TelemetryCoercer.Apply(b, started)

	require.Equal(t, []string{"a", "b", ColumnCreatedAt}, b.Columns)
	for _, r := range b.Rows {
		assert.Equal(t, started.UTC(), r.Value(ColumnCreatedAt))
	}
}

func TestCoercerLeavesTelemetryValuesAlone(t *testing.T) {
	b := NewBatch([]*Record{row("wind_direction_compass", "NW", "air_temp", 28.5)})

	missing := TelemetryCoercer.Apply(b, time.Now())

	assert.Zero(t, missing)
	assert.Equal(t, "NW", b.Rows[0].Value("wind_direction_compass"))
	assert.Equal(t, 28.5, b.Rows[0].Value("air_temp"))
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" 7 ", 7, true},
		{int64(3), 3, true},
		{"", 0, false},
		{"NaN", 0, false},
		{"NULL", 0, false},
		{true, 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
	}
}
