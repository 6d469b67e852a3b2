package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTelemetryWindowFirstRun(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 37, 12, 0, time.UTC)
	p := DefaultWindowPolicy()

	for _, probe := range []Probe{NotFound(), Found(time.Time{})} {
		w := p.Telemetry(now, probe)

		assert.Equal(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), w.End)
		assert.Equal(t, time.Date(2026, 10, 5, 10, 0, 0, 0, time.UTC), w.Start)
		assert.Equal(t, 14*24*time.Hour+time.Hour, w.End.Sub(w.Start))
	}
}

func TestTelemetryWindowLaterRun(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 37, 12, 0, time.UTC)

	w := DefaultWindowPolicy().Telemetry(now, Found(now.Add(-time.Hour)))

	assert.Equal(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 4*time.Hour, w.End.Sub(w.Start))
}

func TestTelemetryWindowUsesUTC(t *testing.T) {
	pdt := time.FixedZone("PDT", -7*3600)
	now := time.Date(2026, 10, 19, 3, 5, 0, 0, pdt)

	w := DefaultWindowPolicy().Telemetry(now, Found(now))

	assert.Equal(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC), w.Start)
}
