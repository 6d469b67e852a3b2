package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-ingest/internal/common"
	"github.com/i474232898/weather-ingest/internal/weather"
)

const (
	defaultNWACBaseURL = "https://api.snowobs.com/wx/v1/station/data/timeseries/"
	nwacTimeLayout     = "200601021504"
)

// NWACProvider implements weather.TelemetrySource for the NWAC station
// timeseries API.
type NWACProvider struct {
	name    string
	baseURL string
	token   string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewNWACProvider(cfg Config) *NWACProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultNWACBaseURL
	}
	return &NWACProvider{
		name:    "nwac",
		baseURL: baseURL,
		token:   cfg.Token,
		httpCfg: cfg.httpConfig(),
		circuit: newBreaker("nwac"),
	}
}

func (p *NWACProvider) Name() string {
	return p.name
}

func (p *NWACProvider) FetchTelemetry(ctx context.Context, stations []int, w weather.Window) ([]*weather.Record, error) {
	ids := make([]string, 0, len(stations))
	for _, id := range stations {
		ids = append(ids, strconv.Itoa(id))
	}

	values := url.Values{}
	values.Set("token", p.token)
	values.Set("stid", strings.Join(ids, ","))
	values.Set("source", "nwac")
	values.Set("start_date", w.Start.UTC().Format(nwacTimeLayout))
	values.Set("end_date", w.End.UTC().Format(nwacTimeLayout))
	values.Set("format", "json")

	log.Printf("DEBUG: nwac request stid=%s start_date=%s end_date=%s",
		values.Get("stid"), values.Get("start_date"), values.Get("end_date"))

	var payload nwacResponse
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}
	return normalizeNWAC(payload), nil
}

type nwacResponse struct {
	Units     map[string]any `json:"UNITS"`
	Variables []struct {
		Variable string `json:"variable"`
		LongName string `json:"long_name"`
	} `json:"VARIABLES"`
	Stations []map[string]json.RawMessage `json:"STATION"`
}

// manifest lists the measured variables: declared variables in order,
// then any unit-only names in lexical order.
func (r nwacResponse) manifest() []string {
	seen := map[string]bool{weather.ColumnDateTime: true}
	var out []string
	for _, v := range r.Variables {
		if v.Variable == "" || seen[v.Variable] {
			continue
		}
		seen[v.Variable] = true
		out = append(out, v.Variable)
	}
	for _, k := range common.SortedKeys(r.Units) {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// normalizeNWAC builds one row per station and timestamp. A station that
// fails to decode is logged and skipped.
func normalizeNWAC(payload nwacResponse) []*weather.Record {
	vars := payload.manifest()

	var rows []*weather.Record
	for _, s := range payload.Stations {
		station, err := stationRecord(s)
		if err != nil {
			log.Printf("ERROR: skipping station %v: %v", stationLabel(s), err)
			continue
		}

		obs, err := decodeObservations(s["observations"])
		if err != nil {
			log.Printf("ERROR: skipping station %v: %v", stationLabel(s), err)
			continue
		}
		times := obs[weather.ColumnDateTime]
		if len(times) == 0 {
			log.Printf("DEBUG: no observations for station %v", stationLabel(s))
			continue
		}

		for i, ts := range times {
			row := station.Clone()
			row.Set(weather.ColumnDateTime, ts)
			for _, col := range vars {
				arr, ok := obs[col]
				if !ok {
					continue
				}
				var v any
				if i < len(arr) {
					v = scalar(arr[i])
				}
				row.Set(col, v)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// stationRecord flattens a station's metadata: scalar keys as-is, the
// meta object's keys, and the latest station note.
func stationRecord(s map[string]json.RawMessage) (*weather.Record, error) {
	row := weather.NewRecord()
	for _, k := range common.SortedKeys(s) {
		switch k {
		case "observations":
			continue
		case "meta":
			var meta map[string]any
			if err := json.Unmarshal(s[k], &meta); err != nil {
				return nil, fmt.Errorf("%w: station meta: %v", weather.ErrTransport, err)
			}
			for _, mk := range common.SortedKeys(meta) {
				row.Set(mk, scalar(meta[mk]))
			}
		case "station_note":
			var notes []map[string]any
			if err := json.Unmarshal(s[k], &notes); err != nil {
				return nil, fmt.Errorf("%w: station note: %v", weather.ErrTransport, err)
			}
			if note := latestNote(notes); note != nil {
				row.Set("station_note_date_updated", scalar(note["date_updated"]))
				row.Set("station_note_note", scalar(note["note"]))
				row.Set("station_note_status", scalar(note["status"]))
			}
		default:
			var v any
			if err := json.Unmarshal(s[k], &v); err != nil {
				return nil, fmt.Errorf("%w: station %s: %v", weather.ErrTransport, k, err)
			}
			row.Set(k, scalar(v))
		}
	}
	return row, nil
}

// latestNote picks the note with the greatest date_updated; the feed
// lists them newest first, so ties keep the earlier entry.
func latestNote(notes []map[string]any) map[string]any {
	var latest map[string]any
	var latestDate string
	for _, n := range notes {
		d, _ := n["date_updated"].(string)
		if latest == nil || d > latestDate {
			latest, latestDate = n, d
		}
	}
	return latest
}

// decodeObservations accepts an object of parallel arrays. The feed sends
// an empty list for stations without data.
func decodeObservations(raw json.RawMessage) (map[string][]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: observations: %v", weather.ErrTransport, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, nil
	}
	out := make(map[string][]any, len(obj))
	for k, val := range obj {
		if arr, ok := val.([]any); ok {
			out[k] = arr
		}
	}
	return out, nil
}

func stationLabel(s map[string]json.RawMessage) any {
	for _, k := range []string{"stid", "name", "id"} {
		var v any
		if err := json.Unmarshal(s[k], &v); err == nil && v != nil {
			return v
		}
	}
	return "unknown"
}
