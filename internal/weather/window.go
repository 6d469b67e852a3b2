package weather

import "time"

// Window is the half-open interval [Start, End) a run is authoritative for.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowPolicy sizes the telemetry fetch window.
type WindowPolicy struct {
	// Lookback is how far back the first run reaches.
	Lookback time.Duration
	// Trailing is how much recent data later runs refetch, so the
	// provider can still revise its latest readings.
	Trailing time.Duration
	// Lead extends the window past the current hour.
	Lead time.Duration
}

func DefaultWindowPolicy() WindowPolicy {
	return WindowPolicy{
		Lookback: 14 * 24 * time.Hour,
		Trailing: 4 * time.Hour,
		Lead:     time.Hour,
	}
}

// Telemetry returns the window to fetch at now. The window ends Lead past
// the top of the current hour; it spans Lookback+Lead until the table
// holds data, and Trailing afterwards.
func (p WindowPolicy) Telemetry(now time.Time, probe Probe) Window {
	end := now.UTC().Truncate(time.Hour).Add(p.Lead)
	if probe.HasLatest() {
		return Window{Start: end.Add(-p.Trailing), End: end}
	}
	return Window{Start: end.Add(-p.Lookback - p.Lead), End: end}
}
