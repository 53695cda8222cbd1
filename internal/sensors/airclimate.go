package sensors

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/irriga/controller/internal/model"
)

// maxRawRetries bounds the quick retries read_raw performs before
// giving up on a sample, per SPEC_FULL.md §4.2.
const maxRawRetries = 3

// rawRetryDelay is the pause between retries; small enough that three
// of them stay well under the ~100ms budget a DHT-style part allows.
const rawRetryDelay = 20 * time.Millisecond

// RawReader produces one attempt at an air-climate sample. A real
// one-wire driver would implement this against actual hardware; this
// module wires in SimulatedRawReader because no one-wire library is
// present anywhere in the corpus this core was built from (see
// DESIGN.md) — the simulation fallback is itself a requirement of
// SPEC_FULL.md §4.2, not a placeholder.
type RawReader interface {
	ReadRaw() (temperatureC, humidityPct float64, err error)
}

// AirClimateDriver samples temperature and humidity, retrying a
// handful of times per read before falling back to the last good
// value still inside the cache window, or reporting no data.
type AirClimateDriver struct {
	base
	raw RawReader
}

func NewAirClimateDriver(raw RawReader) *AirClimateDriver {
	return &AirClimateDriver{base: newBase(model.KindAirClimate, defaultMinInterval), raw: raw}
}

func (d *AirClimateDriver) Setup(ctx context.Context) error {
	return nil
}

func (d *AirClimateDriver) Read(ctx context.Context, now time.Time) (*model.SensorReading, bool) {
	return d.sampleOrCached(now, func() (*model.SensorReading, error) {
		var lastErr error
		for attempt := 0; attempt < maxRawRetries; attempt++ {
			temp, humidity, err := d.raw.ReadRaw()
			if err == nil {
				return &model.SensorReading{
					Kind:         model.KindAirClimate,
					Timestamp:    now,
					TemperatureC: temp,
					HumidityPct:  humidity,
					Simulated:    isSimulated(d.raw),
				}, nil
			}
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rawRetryDelay):
			}
		}
		return nil, lastErr
	})
}

func (d *AirClimateDriver) Cleanup() error { return nil }

func isSimulated(r RawReader) bool {
	_, ok := r.(*SimulatedRawReader)
	return ok
}

// SimulatedRawReader produces plausible, clearly-tagged readings in
// the absence of real one-wire hardware. It wanders a sinusoidal
// baseline so a long-running controller sees gradual, not random,
// swings — closer to what a real DHT-style sensor reports over a day.
type SimulatedRawReader struct {
	rng   *rand.Rand
	start time.Time
}

func NewSimulatedRawReader(seed int64) *SimulatedRawReader {
	return &SimulatedRawReader{rng: rand.New(rand.NewSource(seed)), start: time.Now()}
}

func (s *SimulatedRawReader) ReadRaw() (float64, float64, error) {
	elapsed := time.Since(s.start).Hours()
	temp := 22 + 6*math.Sin(elapsed*math.Pi/12) + (s.rng.Float64()-0.5)
	humidity := 55 + 15*math.Sin(elapsed*math.Pi/12+math.Pi/2) + (s.rng.Float64()-0.5)*2
	if humidity < 0 {
		humidity = 0
	}
	if humidity > 100 {
		humidity = 100
	}
	return temp, humidity, nil
}
