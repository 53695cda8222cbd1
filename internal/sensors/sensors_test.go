package sensors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/model"
)

type fakePinSource struct {
	mu      sync.Mutex
	claimed map[int]string
	values  map[int]hal.Level
	err     error
}

func newFakePinSource() *fakePinSource {
	return &fakePinSource{claimed: make(map[int]string), values: make(map[int]hal.Level)}
}

func (f *fakePinSource) ClaimInput(pin int, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed[pin] = owner
	return nil
}

func (f *fakePinSource) Read(pin int) (hal.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.values[pin], nil
}

func (f *fakePinSource) set(pin int, v hal.Level) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[pin] = v
}

func TestSoilMoistureDriver_DryAndWet(t *testing.T) {
	src := newFakePinSource()
	d := NewSoilMoistureDriver(3, src)
	require.NoError(t, d.Setup(context.Background()))

	now := time.Now()
	src.set(3, hal.High)
	reading, ok := d.Read(context.Background(), now)
	require.True(t, ok)
	assert.True(t, reading.IsDry)
	assert.Equal(t, 0.0, reading.Percent)

	src.set(3, hal.Low)
	reading, ok = d.Read(context.Background(), now.Add(2*defaultMinInterval))
	require.True(t, ok)
	assert.False(t, reading.IsDry)
	assert.Equal(t, 100.0, reading.Percent)
}

func TestSoilMoistureDriver_CachesWithinMinInterval(t *testing.T) {
	src := newFakePinSource()
	d := NewSoilMoistureDriver(3, src)
	require.NoError(t, d.Setup(context.Background()))

	now := time.Now()
	src.set(3, hal.Low)
	first, ok := d.Read(context.Background(), now)
	require.True(t, ok)

	src.set(3, hal.High) // changes underlying value, but cache should still win
	second, ok := d.Read(context.Background(), now.Add(time.Second))
	require.True(t, ok)

	assert.Equal(t, first.IsDry, second.IsDry)
}

func TestRainDriver_DetectsOnLow(t *testing.T) {
	src := newFakePinSource()
	d := NewRainDriver(4, src)
	require.NoError(t, d.Setup(context.Background()))

	src.set(4, hal.Low)
	reading, ok := d.Read(context.Background(), time.Now())
	require.True(t, ok)
	assert.True(t, reading.Detected)
}

func TestWaterLevelDriver_InvertFlipsPolarity(t *testing.T) {
	src := newFakePinSource()
	d := NewWaterLevelDriver(5, src, true)
	require.NoError(t, d.Setup(context.Background()))

	src.set(5, hal.High) // normally "detected"; inverted means "not detected"
	reading, ok := d.Read(context.Background(), time.Now())
	require.True(t, ok)
	assert.False(t, reading.Detected)
}

func TestDriver_BecomesUnhealthyAfterThreeFailures(t *testing.T) {
	src := newFakePinSource()
	src.err = errors.New("read failed")
	d := NewSoilMoistureDriver(3, src)
	require.NoError(t, d.Setup(context.Background()))

	base := time.Now()
	for i := 0; i < unhealthyThreshold; i++ {
		_, ok := d.Read(context.Background(), base.Add(time.Duration(i)*defaultMinInterval*2))
		assert.False(t, ok)
	}
	assert.False(t, d.Healthy())
}

func TestDriver_HealthResetsOnSuccess(t *testing.T) {
	src := newFakePinSource()
	src.err = errors.New("read failed")
	d := NewSoilMoistureDriver(3, src)
	require.NoError(t, d.Setup(context.Background()))

	base := time.Now()
	_, _ = d.Read(context.Background(), base)
	_, _ = d.Read(context.Background(), base.Add(defaultMinInterval*2))

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()

	_, ok := d.Read(context.Background(), base.Add(defaultMinInterval*4))
	require.True(t, ok)
	assert.True(t, d.Healthy())
}

func TestAirClimateDriver_RetriesThenSucceeds(t *testing.T) {
	reader := &flakyRawReader{failCount: 2}
	d := NewAirClimateDriver(reader)

	reading, ok := d.Read(context.Background(), time.Now())
	require.True(t, ok)
	assert.Equal(t, 3, reader.calls)
	assert.False(t, reading.Simulated)
}

func TestAirClimateDriver_SimulatedReaderIsTagged(t *testing.T) {
	d := NewAirClimateDriver(NewSimulatedRawReader(1))

	reading, ok := d.Read(context.Background(), time.Now())
	require.True(t, ok)
	assert.True(t, reading.Simulated)
}

func TestManager_ReadAllAggregatesEveryDriver(t *testing.T) {
	src := newFakePinSource()
	soil := NewSoilMoistureDriver(3, src)
	rain := NewRainDriver(4, src)

	m := NewManager(soil, rain)
	require.NoError(t, m.Setup(context.Background()))

	results := m.ReadAll(context.Background(), time.Now())
	assert.Len(t, results, 2)
	assert.Contains(t, results, model.KindSoilMoisture)
	assert.Contains(t, results, model.KindRain)
}

type flakyRawReader struct {
	calls     int
	failCount int
}

func (r *flakyRawReader) ReadRaw() (float64, float64, error) {
	r.calls++
	if r.calls <= r.failCount {
		return 0, 0, errors.New("transient")
	}
	return 22.5, 55.0, nil
}
