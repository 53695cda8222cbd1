package sensors

import (
	"context"
	"time"

	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/model"
)

// SoilMoistureDriver reads a digital soil moisture probe. raw=1 means
// dry (0%); raw=0 means wet (100%).
type SoilMoistureDriver struct {
	base
	pin    int
	source PinSource
}

func NewSoilMoistureDriver(pin int, source PinSource) *SoilMoistureDriver {
	return &SoilMoistureDriver{base: newBase(model.KindSoilMoisture, defaultMinInterval), pin: pin, source: source}
}

func (d *SoilMoistureDriver) Setup(ctx context.Context) error {
	d.setupOnce.Do(func() {
		d.setupErr = d.source.ClaimInput(d.pin, "soil_moisture")
	})
	return d.setupErr
}

func (d *SoilMoistureDriver) Read(ctx context.Context, now time.Time) (*model.SensorReading, bool) {
	return d.sampleOrCached(now, func() (*model.SensorReading, error) {
		raw, err := d.source.Read(d.pin)
		if err != nil {
			return nil, err
		}
		isDry := raw == hal.High
		percent := 100.0
		if isDry {
			percent = 0.0
		}
		return &model.SensorReading{
			Kind:      model.KindSoilMoisture,
			Timestamp: now,
			Percent:   percent,
			IsDry:     isDry,
		}, nil
	})
}

func (d *SoilMoistureDriver) Cleanup() error { return nil }

// RainDriver reads a digital raindrop sensor. raw=0 means rain
// detected; raw=1 means dry.
type RainDriver struct {
	base
	pin    int
	source PinSource
}

func NewRainDriver(pin int, source PinSource) *RainDriver {
	return &RainDriver{base: newBase(model.KindRain, defaultMinInterval), pin: pin, source: source}
}

func (d *RainDriver) Setup(ctx context.Context) error {
	d.setupOnce.Do(func() {
		d.setupErr = d.source.ClaimInput(d.pin, "rain")
	})
	return d.setupErr
}

func (d *RainDriver) Read(ctx context.Context, now time.Time) (*model.SensorReading, bool) {
	return d.sampleOrCached(now, func() (*model.SensorReading, error) {
		raw, err := d.source.Read(d.pin)
		if err != nil {
			return nil, err
		}
		detected := raw == hal.Low
		return &model.SensorReading{
			Kind:      model.KindRain,
			Timestamp: now,
			Detected:  detected,
		}, nil
	})
}

func (d *RainDriver) Cleanup() error { return nil }

// WaterLevelDriver reads a digital water level float switch. raw=1
// means detected (100%); raw=0 means not detected (0%). Invert flips
// this polarity, per the configuration inversion flag SPEC_FULL.md §9
// asks implementations to expose (the source disagreed on which
// raw value means "low").
type WaterLevelDriver struct {
	base
	pin    int
	source PinSource
	invert bool
}

func NewWaterLevelDriver(pin int, source PinSource, invert bool) *WaterLevelDriver {
	return &WaterLevelDriver{base: newBase(model.KindWaterLevel, defaultMinInterval), pin: pin, source: source, invert: invert}
}

func (d *WaterLevelDriver) Setup(ctx context.Context) error {
	d.setupOnce.Do(func() {
		d.setupErr = d.source.ClaimInput(d.pin, "water_level")
	})
	return d.setupErr
}

func (d *WaterLevelDriver) Read(ctx context.Context, now time.Time) (*model.SensorReading, bool) {
	return d.sampleOrCached(now, func() (*model.SensorReading, error) {
		raw, err := d.source.Read(d.pin)
		if err != nil {
			return nil, err
		}
		detected := raw == hal.High
		if d.invert {
			detected = !detected
		}
		percent := 0.0
		if detected {
			percent = 100.0
		}
		return &model.SensorReading{
			Kind:      model.KindWaterLevel,
			Timestamp: now,
			Percent:   percent,
			Detected:  detected,
		}, nil
	})
}

func (d *WaterLevelDriver) Cleanup() error { return nil }
