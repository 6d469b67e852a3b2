package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-ingest/internal/weather"
)

const noaaFixture = `{
  "operationalMode": "Production",
  "srsName": "WGS 1984",
  "creationDate": "2026-10-19T03:00:00-07:00",
  "credit": "https://www.weather.gov/sew/",
  "productionCenter": "Seattle, WA",
  "location": {
    "latitude": "47.44",
    "longitude": "-121.43",
    "elevation": "3100",
    "wfo": "SEW",
    "areaDescription": "3 Miles S Snoqualmie Pass WA"
  },
  "time": {
    "layoutKey": "k-p12h-n3-1",
    "startPeriodName": ["Today", "Tonight", "Monday"],
    "startValidTime": ["2026-10-19T06:00:00-07:00", "2026-10-19T18:00:00-07:00", "2026-10-20T06:00:00-07:00"],
    "tempLabel": ["High", "Low", "High"]
  },
  "data": {
    "temperature": ["42", "31", "44"],
    "pop": [null, "60", "20"],
    "weather": ["Rain", "Snow", "Chance Rain"],
    "iconLink": ["ra.png", "sn.png", "ra40.png"],
    "text": ["Rain likely.", "Snow showers.", "A chance of rain."]
  },
  "currentobservation": {
    "id": "KSMP",
    "name": "Stampede Pass",
    "Temp": "38",
    "Dewp": "NA",
    "Winds": "",
    "Gust": " NULL ",
    "Visibility": "10.00"
  }
}`

func decodeFixture(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload
}

var alpental = weather.Location{Name: "Alpental", Lat: 47.4453, Lon: -121.426}

func newNOAAServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var got http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = *r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNOAAFetchLocation(t *testing.T) {
	srv, got := newNOAAServer(t, http.StatusOK, noaaFixture)
	p := NewNOAAProvider(Config{Client: srv.Client(), BaseURL: srv.URL, UserAgent: "weather-ingest-test"})

	report, err := p.FetchLocation(context.Background(), alpental)
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "47.4453", q.Get("lat"))
	assert.Equal(t, "-121.426", q.Get("lon"))
	assert.Equal(t, "json", q.Get("FcstType"))
	assert.Equal(t, "english", q.Get("lg"))
	assert.Equal(t, "weather-ingest-test", got.Header.Get("User-Agent"))

	require.Len(t, report.Forecast, 3)
	first := report.Forecast[0]
	assert.Equal(t, []string{
		"location_name",
		"creation_date", "credit", "operational_mode", "production_center", "srs_name",
		"location_area_description", "location_elevation", "location_latitude", "location_longitude", "location_wfo",
		"date_time", "weather", "icon_link", "text", "precip_chance", "temp", "temp_label", "start_period_name",
	}, first.Keys())
	assert.Equal(t, "Alpental", first.Value("location_name"))
	assert.Equal(t, "2026-10-19T06:00:00-07:00", first.Value("date_time"))
	assert.Equal(t, "Today", first.Value("start_period_name"))
	assert.Equal(t, "42", first.Value("temp"))
	assert.Nil(t, first.Value("precip_chance"))

	second := report.Forecast[1]
	assert.Equal(t, "60", second.Value("precip_chance"))
	assert.Equal(t, "Low", second.Value("temp_label"))
	assert.Equal(t, "Snow showers.", second.Value("text"))
}

func TestNOAAObservation(t *testing.T) {
	payload := decodeFixture(t, noaaFixture)

	report, err := normalizeNOAA(alpental, payload)
	require.NoError(t, err)
	obs := report.Observation
	require.NotNil(t, obs)

	assert.Equal(t, "Alpental", obs.Value("location_name"))
	assert.Equal(t, "2026-10-19T03:00:00-07:00", obs.Value("creation_date"))
	assert.Equal(t, "KSMP", obs.Value("id"))
	assert.Equal(t, "38", obs.Value("temp"))
	assert.Equal(t, "10.00", obs.Value("visibility"))

	for _, col := range []string{"dewp", "winds", "gust"} {
		v, ok := obs.Get(col)
		assert.True(t, ok, col)
		assert.Nil(t, v, col)
	}

	// Observation fields never leak into forecast rows.
	_, ok := report.Forecast[0].Get("visibility")
	assert.False(t, ok)
}

func TestNOAAMisalignedSeries(t *testing.T) {
	payload := decodeFixture(t, `{
	  "time": {"startValidTime": ["2026-10-19T06:00:00-07:00", "2026-10-19T18:00:00-07:00"]},
	  "data": {"temperature": ["42"]}
	}`)

	_, err := normalizeNOAA(alpental, payload)
	assert.ErrorIs(t, err, weather.ErrMisaligned)
}

func TestNOAAMissingSeriesAreNil(t *testing.T) {
	payload := decodeFixture(t, `{
	  "time": {"startValidTime": ["2026-10-19T06:00:00-07:00"]},
	  "data": {"temperature": ["42"]}
	}`)

	report, err := normalizeNOAA(alpental, payload)
	require.NoError(t, err)
	require.Len(t, report.Forecast, 1)

	v, ok := report.Forecast[0].Get("weather")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestNOAAServerError(t *testing.T) {
	srv, _ := newNOAAServer(t, http.StatusInternalServerError, `{}`)
	p := NewNOAAProvider(Config{Client: srv.Client(), BaseURL: srv.URL})

	_, err := p.FetchLocation(context.Background(), alpental)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrTransport)
}

func TestNOAAInvalidBody(t *testing.T) {
	srv, _ := newNOAAServer(t, http.StatusOK, `<html>maintenance</html>`)
	p := NewNOAAProvider(Config{Client: srv.Client(), BaseURL: srv.URL})

	_, err := p.FetchLocation(context.Background(), alpental)
	assert.ErrorIs(t, err, weather.ErrTransport)
}

func TestNOAARetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(noaaFixture))
	}))
	defer srv.Close()

	p := NewNOAAProvider(Config{Client: srv.Client(), BaseURL: srv.URL, MaxRetries: 1})
	report, err := p.FetchLocation(context.Background(), alpental)
	require.NoError(t, err)
	assert.Len(t, report.Forecast, 3)
	assert.Equal(t, 2, calls)
}

func TestNOAANoClient(t *testing.T) {
	p := NewNOAAProvider(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := p.FetchLocation(context.Background(), alpental)
	assert.True(t, errors.Is(err, weather.ErrTransport))
	assert.ErrorContains(t, err, errNoHTTPClient.Error())
}

func TestNOAADefaultBaseURL(t *testing.T) {
	p := NewNOAAProvider(Config{})
	u, err := url.Parse(p.baseURL)
	require.NoError(t, err)
	assert.Equal(t, "forecast.weather.gov", u.Host)
}
