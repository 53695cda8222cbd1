// Command irrigation-controller is the composition root: it loads
// configuration, opens the GPIO chip, wires every driver and actuator
// to it, and runs the controller loop until a termination signal
// arrives.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/irriga/controller/internal/actuators"
	"github.com/irriga/controller/internal/config"
	"github.com/irriga/controller/internal/controller"
	"github.com/irriga/controller/internal/events"
	"github.com/irriga/controller/internal/hal"
	"github.com/irriga/controller/internal/network"
	"github.com/irriga/controller/internal/sensors"
	"github.com/irriga/controller/internal/state"
	"github.com/irriga/controller/internal/store"
)

var (
	configPath = flag.String("config", "config.yaml", "path to the controller configuration file")
	dbPath     = flag.String("db", "irrigation.db", "path to the event store database file")
	chipName   = flag.String("chip", "gpiochip0", "GPIO chip device name")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()

	log := newLogger(*verbose)

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("controller exited with error")
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	profile, err := cfg.SelectedPlant()
	if err != nil {
		return err
	}

	chip, err := hal.Open(*chipName, log)
	if err != nil {
		return err
	}

	st := state.New()

	eventStore, err := store.Open(*dbPath)
	if err != nil {
		return err
	}

	bus := events.NewBus(log)
	bus.Subscribe(func(r events.Record) {
		switch r.Kind {
		case events.KindIrrigation:
			log.Info().
				Str("reason", string(r.Irrigation.Reason)).
				Int("duration_sec", r.Irrigation.DurationSec).
				Str("outcome", string(r.Irrigation.Outcome)).
				Msg("irrigation event")
		case events.KindAlert:
			log.Warn().
				Str("kind", string(r.Alert.Kind)).
				Str("message", r.Alert.Message).
				Msg("alert raised")
		}
	})

	pump := actuators.NewPump(cfg.Pins.PumpRelayPin, chip)
	if err := pump.Setup(); err != nil {
		return err
	}

	leds := actuators.NewLEDs(chip, cfg.Pins.LEDRedPin, cfg.Pins.LEDGreenPin, cfg.Pins.LEDYellowPin, cfg.Pins.LEDWhitePin)
	if err := leds.Setup(); err != nil {
		return err
	}

	manager := sensors.NewManager(
		sensors.NewSoilMoistureDriver(cfg.Pins.SoilMoisturePin, chip),
		sensors.NewRainDriver(cfg.Pins.RainPin, chip),
		sensors.NewWaterLevelDriver(cfg.Pins.WaterLevelPin, chip, false),
		sensors.NewAirClimateDriver(sensors.NewSimulatedRawReader(int64(cfg.Pins.DHTPin))),
	)

	prober := network.NewProber()

	ctrl := controller.New(controller.Deps{
		HAL:      chip,
		Sensors:  manager,
		State:    st,
		Store:    eventStore,
		Bus:      bus,
		Pump:     pump,
		LEDs:     leds,
		Prober:   prober,
		Profile:  profile,
		Settings: cfg.Irrigation,
		DeviceID: profile.ID,
		Log:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := ctrl.Run(ctx)
	if closeErr := eventStore.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}
