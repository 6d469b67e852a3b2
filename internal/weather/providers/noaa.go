package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/iancoleman/strcase"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-ingest/internal/common"
	"github.com/i474232898/weather-ingest/internal/weather"
)

const defaultNOAABaseURL = "https://forecast.weather.gov/MapClick.php"

// Sentinel strings the NOAA feed uses for absent observation values.
var noaaSentinels = []string{"", "NA", "NULL"}

// NOAAProvider implements weather.ForecastSource for the NWS point
// forecast feed.
type NOAAProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNOAAProvider(cfg Config) *NOAAProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultNOAABaseURL
	}
	return &NOAAProvider{
		name:    "noaa",
		baseURL: baseURL,
		httpCfg: cfg.httpConfig(),
		circuit: newBreaker("noaa"),
	}
}

func (p *NOAAProvider) Name() string {
	return p.name
}

func (p *NOAAProvider) FetchLocation(ctx context.Context, loc weather.Location) (weather.LocationReport, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("unit", "0")
	values.Set("lg", "english")
	values.Set("FcstType", "json")

	var payload map[string]json.RawMessage
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.LocationReport{}, err
	}
	return normalizeNOAA(loc, payload)
}

// Keys of the response that are not flat metadata.
var noaaBlocks = map[string]bool{
	"time":               true,
	"data":               true,
	"location":           true,
	"currentobservation": true,
}

// forecastSeries lists the parallel arrays zipped into forecast rows.
var forecastSeries = []struct {
	block  string
	key    string
	column string
}{
	{"data", "weather", "weather"},
	{"data", "iconLink", "icon_link"},
	{"data", "text", "text"},
	{"data", "pop", "precip_chance"},
	{"data", "temperature", "temp"},
	{"time", "tempLabel", "temp_label"},
	{"time", "startPeriodName", "start_period_name"},
}

func normalizeNOAA(loc weather.Location, payload map[string]json.RawMessage) (weather.LocationReport, error) {
	base := weather.NewRecord()
	base.Set("location_name", loc.Name)
	for _, k := range common.SortedKeys(payload) {
		if noaaBlocks[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(payload[k], &v); err != nil {
			return weather.LocationReport{}, fmt.Errorf("%w: field %s: %v", weather.ErrTransport, k, err)
		}
		base.Set(strcase.ToSnake(k), scalar(v))
	}

	location, err := decodeObject(payload, "location")
	if err != nil {
		return weather.LocationReport{}, err
	}
	for _, k := range common.SortedKeys(location) {
		base.Set("location_"+strcase.ToSnake(k), scalar(location[k]))
	}

	current, err := decodeObject(payload, "currentobservation")
	if err != nil {
		return weather.LocationReport{}, err
	}
	observation := base.Clone()
	for _, k := range common.SortedKeys(current) {
		observation.Set(strcase.ToSnake(k), sentinelToMissing(scalar(current[k])))
	}

	forecast, err := zipForecast(base, payload)
	if err != nil {
		return weather.LocationReport{}, err
	}

	return weather.LocationReport{
		Location:    loc,
		Observation: observation,
		Forecast:    forecast,
	}, nil
}

// zipForecast builds one row per startValidTime entry. Every series that
// is present must be exactly as long as the time series.
func zipForecast(base *weather.Record, payload map[string]json.RawMessage) ([]*weather.Record, error) {
	blocks := map[string]map[string][]any{}
	for _, name := range []string{"time", "data"} {
		series, err := decodeSeries(payload, name)
		if err != nil {
			return nil, err
		}
		blocks[name] = series
	}

	times := blocks["time"]["startValidTime"]
	for _, s := range forecastSeries {
		arr, ok := blocks[s.block][s.key]
		if !ok {
			continue
		}
		if len(arr) != len(times) {
			return nil, fmt.Errorf("%w: %s.%s has %d entries, startValidTime has %d",
				weather.ErrMisaligned, s.block, s.key, len(arr), len(times))
		}
	}

	rows := make([]*weather.Record, 0, len(times))
	for i, ts := range times {
		row := base.Clone()
		row.Set(weather.ColumnDateTime, ts)
		for _, s := range forecastSeries {
			var v any
			if arr, ok := blocks[s.block][s.key]; ok {
				v = scalar(arr[i])
			}
			row.Set(s.column, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeObject(payload map[string]json.RawMessage, key string) (map[string]any, error) {
	raw, ok := payload[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", weather.ErrTransport, key, err)
	}
	return out, nil
}

// decodeSeries reads the array-valued entries of a block. Scalar entries
// are ignored.
func decodeSeries(payload map[string]json.RawMessage, key string) (map[string][]any, error) {
	obj, err := decodeObject(payload, key)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]any, len(obj))
	for k, v := range obj {
		if arr, ok := v.([]any); ok {
			out[k] = arr
		}
	}
	return out, nil
}

func sentinelToMissing(v any) any {
	if s, ok := v.(string); ok && common.OneOf(s, noaaSentinels...) {
		return nil
	}
	return v
}
