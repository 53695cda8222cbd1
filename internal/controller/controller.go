// Package controller implements the supervisory cycle loop of
// spec.md §4.6: sample -> decide -> actuate -> persist, the LED status
// state machine, and the external hooks of spec.md §4.9 (manual
// trigger, status query, shutdown). It is grounded on the teacher's
// single-owner main-loop style (cmd/device-gpiod/main.go) generalized
// from a one-shot bootstrap call into an explicit, owned loop, and on
// original_source/core/decision_engine/main_controller.py's run/
// shutdown pair for the ordered teardown sequence.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/irriga/controller/internal/actuators"
	"github.com/irriga/controller/internal/config"
	"github.com/irriga/controller/internal/engine"
	"github.com/irriga/controller/internal/events"
	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/model"
	"github.com/irriga/controller/internal/network"
	"github.com/irriga/controller/internal/sensors"
	"github.com/irriga/controller/internal/state"
	"github.com/irriga/controller/internal/store"
)

// yellowBlinkInterval and redBlinkInterval are the LED blink cadences
// spec.md §4.6 step 5 specifies for an active irrigation run and a
// failure, respectively.
const (
	yellowBlinkInterval = 500 * time.Millisecond
	redBlinkInterval    = 300 * time.Millisecond

	// pruneEveryTicks is how many ticks separate prune() invocations
	// (spec.md §4.6 step 6's default of 10), expressed to the cron
	// scheduler as a wall-clock cadence of N*check_interval_sec.
	pruneEveryTicks = 10
)

// Controller owns every long-lived resource for one run: the HAL, the
// sensor manager, actuators, state, store, event bus and network
// prober. It is constructed once at the process root and torn down in
// reverse order by Shutdown.
type Controller struct {
	hal     *hal.Chip
	sensors *sensors.Manager
	state   *state.State
	st      *store.Store
	bus     *events.Bus
	pump    *actuators.Pump
	leds    *actuators.LEDs
	prober  *network.Prober
	cron    *cron.Cron

	profile  config.PlantProfile
	settings config.IrrigationSettings

	deviceID string

	// actionMu serializes the decide+apply sequence: the tick loop and
	// a manual trigger must never evaluate/apply concurrently, or they
	// could both decide to start the pump at once.
	actionMu sync.Mutex

	log zerolog.Logger

	// ForecastAdvisory is the optional weather-forecast hook of
	// SPEC_FULL.md §9. Nil by default.
	ForecastAdvisory func(now time.Time) *bool
}

// Deps bundles every collaborator New needs. All fields are required
// except DeviceID, which defaults to "default". ForecastAdvisory is not
// part of Deps; it is set on the returned Controller.
type Deps struct {
	HAL      *hal.Chip
	Sensors  *sensors.Manager
	State    *state.State
	Store    *store.Store
	Bus      *events.Bus
	Pump     *actuators.Pump
	LEDs     *actuators.LEDs
	Prober   *network.Prober
	Profile  config.PlantProfile
	Settings config.IrrigationSettings
	DeviceID string
	Log      zerolog.Logger
}

func New(d Deps) *Controller {
	deviceID := d.DeviceID
	if deviceID == "" {
		deviceID = "default"
	}
	return &Controller{
		hal:      d.HAL,
		sensors:  d.Sensors,
		state:    d.State,
		st:       d.Store,
		bus:      d.Bus,
		pump:     d.Pump,
		leds:     d.LEDs,
		prober:   d.Prober,
		profile:  d.Profile,
		settings: d.Settings,
		deviceID: deviceID,
		log:      d.Log.With().Str("component", "controller").Logger(),
	}
}

// Run starts the periodic cycle loop and blocks until ctx is
// canceled. It returns within ~1s of cancellation, per spec.md §4.6.
func (c *Controller) Run(ctx context.Context) error {
	c.cron = cron.New()
	pruneInterval := time.Duration(c.settings.CheckIntervalSec) * time.Second * pruneEveryTicks
	if _, err := c.cron.AddFunc(fmt.Sprintf("@every %s", pruneInterval), func() {
		c.prune(context.Background())
	}); err != nil {
		c.log.Warn().Err(err).Msg("failed to schedule prune job")
	}
	c.cron.Start()

	if err := c.sensors.Setup(ctx); err != nil {
		c.log.Error().Err(err).Msg("sensor setup failed")
	}

	interval := time.Duration(c.settings.CheckIntervalSec) * time.Second
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.shutdownSequence()
		case <-timer.C:
			c.tick(ctx)
			timer.Reset(interval)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	c.tickAt(ctx, time.Now())
}

// tickAt is tick with an injected clock, so tests can drive the cycle
// loop through a sequence of chosen timestamps instead of real sleeps.
func (c *Controller) tickAt(ctx context.Context, now time.Time) {
	online := c.prober.Check(ctx, now)
	if err := c.leds.Set(actuators.White, online); err != nil {
		c.log.Warn().Err(err).Msg("failed to update network LED")
	}

	results := c.sensors.ReadAll(ctx, now)
	for kind, r := range results {
		if r.OK {
			c.state.UpdateSensor(r.Reading)
			continue
		}
		// Alert once a driver crosses the three-strike unhealthy
		// threshold (internal/sensors.base), not on every single
		// failed sample — a transient DHT timing glitch recovers on
		// its own and would otherwise spam an alert every tick.
		if !r.Healthy {
			c.raiseAlert(ctx, model.Alert{
				Timestamp: now,
				Kind:      model.AlertSensorError,
				Message:   fmt.Sprintf("%s sensor is unhealthy", kind),
				Source:    string(kind),
			})
		}
	}

	c.persistReadings(ctx, now, results)

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	snapshot := c.state.SnapshotAt(now)
	decisionCtx, err := c.buildContext(ctx, now, model.TriggerAuto, false)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to build decision context")
		return
	}
	decision := engine.Evaluate(snapshot, c.profile, c.settings, decisionCtx)
	c.applyLocked(ctx, decision, model.TriggerAuto, now)
}

// buildContext assembles the per-tick DecisionContext, rebuilding the
// daily counter and last-irrigation timestamp from the event store so
// both survive a restart (spec.md §4.7).
func (c *Controller) buildContext(ctx context.Context, now time.Time, trigger model.Trigger, overrideSoil bool) (engine.DecisionContext, error) {
	todaySec, err := c.st.TodayIrrigationSeconds(ctx, now)
	if err != nil {
		return engine.DecisionContext{}, fmt.Errorf("load today's irrigation seconds: %w", err)
	}

	var lastAt *time.Time
	last, err := c.st.LastIrrigation(ctx)
	if err != nil {
		return engine.DecisionContext{}, fmt.Errorf("load last irrigation: %w", err)
	}
	if last != nil && last.Outcome == model.OutcomeSuccess {
		t := last.Timestamp
		lastAt = &t
	}

	var forecast *bool
	if c.ForecastAdvisory != nil {
		forecast = c.ForecastAdvisory(now)
	}

	return engine.DecisionContext{
		Now:                now,
		LastIrrigationAt:   lastAt,
		TodayIrrigationSec: todaySec,
		OfflineMode:        !c.prober.Check(ctx, now),
		Trigger:            trigger,
		OverrideSoil:       overrideSoil,
		ForecastRain:       forecast,
	}, nil
}

func (c *Controller) raiseAlert(ctx context.Context, a model.Alert) {
	if err := c.st.AppendAlert(ctx, a); err != nil {
		c.log.Error().Err(err).Msg("failed to persist alert")
	}
	c.bus.EmitAlert(a)
}

func (c *Controller) persistReadings(ctx context.Context, now time.Time, results map[model.SensorKind]sensors.ReadResult) {
	row := store.SensorReadingRow{Timestamp: now, DeviceID: c.deviceID}

	if r, ok := results[model.KindSoilMoisture]; ok && r.OK {
		p := r.Reading.Percent
		d := r.Reading.IsDry
		row.SoilMoisturePct = &p
		row.SoilIsDry = &d
	}
	if r, ok := results[model.KindRain]; ok && r.OK {
		d := r.Reading.Detected
		row.RainDetected = &d
	}
	if r, ok := results[model.KindWaterLevel]; ok && r.OK {
		p := r.Reading.Percent
		d := r.Reading.Detected
		row.WaterLevelPct = &p
		row.WaterDetected = &d
	}
	if r, ok := results[model.KindAirClimate]; ok && r.OK {
		t := r.Reading.TemperatureC
		h := r.Reading.HumidityPct
		row.TemperatureC = &t
		row.AirHumidityPct = &h
	}

	if err := c.st.AppendSensorReadings(ctx, row); err != nil {
		c.log.Error().Err(err).Msg("failed to persist sensor readings")
	}
}

func (c *Controller) prune(ctx context.Context) {
	if err := c.st.Prune(ctx, c.settings.RetainDays, time.Now()); err != nil {
		c.log.Error().Err(err).Msg("failed to prune event store")
	}
}

// shutdownSequence stops the pump, turns off the LEDs, cleans up the
// sensor drivers, then releases the HAL — the ordered teardown of
// spec.md §4.6, grounded on
// original_source/core/decision_engine/main_controller.py's
// shutdown().
func (c *Controller) shutdownSequence() error {
	if c.cron != nil {
		stopCtx := c.cron.Stop()
		<-stopCtx.Done()
	}

	if _, _, err := c.pump.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("failed to stop pump during shutdown")
	}
	if err := c.leds.AllOff(); err != nil {
		c.log.Warn().Err(err).Msg("failed to turn off LEDs during shutdown")
	}
	if err := c.sensors.Cleanup(); err != nil {
		c.log.Warn().Err(err).Msg("failed to clean up sensor drivers during shutdown")
	}
	if err := c.hal.Shutdown(); err != nil {
		return fmt.Errorf("hal shutdown: %w", err)
	}
	return nil
}
