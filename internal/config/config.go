// Package config loads the controller's static configuration: pin
// assignment, irrigation policy settings, and the selected plant
// profile. It generalizes the teacher's gpio/parser.go, which parsed
// a flat list of named GPIO lines from YAML, to the full set of
// options enumerated in spec.md §6.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Pins maps each logical role to a GPIO line offset on the system's
// default chip. Every entry here must be claimed exactly once by the
// HAL before use (SPEC_FULL.md §3, PinRegistry invariant).
type Pins struct {
	SoilMoisturePin int `yaml:"soil_moisture_pin"`
	DHTPin          int `yaml:"dht_pin"`
	RainPin         int `yaml:"rain_pin"`
	WaterLevelPin   int `yaml:"water_level_pin"`
	PumpRelayPin    int `yaml:"pump_relay_pin"`
	LEDRedPin       int `yaml:"led_red_pin"`
	LEDGreenPin     int `yaml:"led_green_pin"`
	LEDYellowPin    int `yaml:"led_yellow_pin"`
	LEDWhitePin     int `yaml:"led_white_pin"`
}

// IrrigationSettings is the immutable-per-run policy configuration
// consumed by the decision engine and controller loop.
type IrrigationSettings struct {
	CheckIntervalSec  int  `yaml:"check_interval_sec"`
	DurationSec       int  `yaml:"duration_sec"`
	DailyQuotaSec     int  `yaml:"daily_quota_sec"`
	MinWaterLevelPct  int  `yaml:"min_water_level_pct"`
	MinTempC          int  `yaml:"min_temp_c"`
	MaxTempC          int  `yaml:"max_temp_c"`
	MaxAirHumidityPct int  `yaml:"max_air_humidity_pct"`
	MinIntervalSec    int  `yaml:"min_interval_sec"`
	RainLock          bool `yaml:"rain_lock"`
	RetainDays        int  `yaml:"retain_days"`
}

// DefaultIrrigationSettings mirrors the defaults enumerated in
// spec.md §6.
func DefaultIrrigationSettings() IrrigationSettings {
	return IrrigationSettings{
		CheckIntervalSec:  300,
		DurationSec:       30,
		DailyQuotaSec:     300,
		MinWaterLevelPct:  20,
		MinTempC:          10,
		MaxTempC:          32,
		MaxAirHumidityPct: 85,
		MinIntervalSec:    3600,
		RainLock:          true,
		RetainDays:        7,
	}
}

// PlantProfile is immutable for the life of a run; it is loaded once
// and selected by ID.
type PlantProfile struct {
	ID                 string  `yaml:"id"`
	Name               string  `yaml:"name"`
	SoilType           string  `yaml:"soil_type"`
	MinMoisturePct     float64 `yaml:"min_moisture_pct"`
	OptimalMoisturePct float64 `yaml:"optimal_moisture_pct"`
	MaxMoisturePct     float64 `yaml:"max_moisture_pct"`
}

// DefaultPlantProfile is the "Tomato" profile named in spec.md §6.
func DefaultPlantProfile() PlantProfile {
	return PlantProfile{
		ID:                 "tomato",
		Name:               "Tomato",
		SoilType:           "loam",
		MinMoisturePct:     40,
		OptimalMoisturePct: 60,
		MaxMoisturePct:     80,
	}
}

// Config is the full recognized configuration surface.
type Config struct {
	Pins         Pins               `yaml:"pins"`
	Irrigation   IrrigationSettings `yaml:"irrigation"`
	PlantProfile []PlantProfile     `yaml:"plant_profiles"`
	ActivePlant  string             `yaml:"active_plant"`
}

// ConfigurationError marks a fatal startup error: a missing pin, a
// double claim, or an invalid threshold. It is the only error class
// that should abort startup (SPEC_FULL.md §7).
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Load reads and validates the YAML configuration at path, filling in
// defaults for irrigation settings and plant profile where the file
// is silent.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("reading %s: %s", path, err)}
	}

	cfg := &Config{
		Irrigation: DefaultIrrigationSettings(),
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parsing %s: %s", path, err)}
	}

	if len(cfg.PlantProfile) == 0 {
		cfg.PlantProfile = []PlantProfile{DefaultPlantProfile()}
	}
	if cfg.ActivePlant == "" {
		cfg.ActivePlant = cfg.PlantProfile[0].ID
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SelectedPlant returns the plant profile matching ActivePlant.
func (c *Config) SelectedPlant() (PlantProfile, error) {
	for _, p := range c.PlantProfile {
		if p.ID == c.ActivePlant {
			return p, nil
		}
	}
	return PlantProfile{}, &ConfigurationError{Reason: fmt.Sprintf("no plant profile with id %q", c.ActivePlant)}
}

// Validate checks the configuration for the fatal cases spec.md §7
// calls out: missing pins (the zero value 0 is a plausible real pin,
// but a pin repeated across roles is never valid) and nonsensical
// thresholds.
func (c *Config) Validate() error {
	seen := map[int]string{}
	roles := map[string]int{
		"soil_moisture_pin": c.Pins.SoilMoisturePin,
		"dht_pin":           c.Pins.DHTPin,
		"rain_pin":          c.Pins.RainPin,
		"water_level_pin":   c.Pins.WaterLevelPin,
		"pump_relay_pin":    c.Pins.PumpRelayPin,
		"led_red_pin":       c.Pins.LEDRedPin,
		"led_green_pin":     c.Pins.LEDGreenPin,
		"led_yellow_pin":    c.Pins.LEDYellowPin,
		"led_white_pin":     c.Pins.LEDWhitePin,
	}
	for role, pin := range roles {
		if prior, ok := seen[pin]; ok {
			return &ConfigurationError{Reason: fmt.Sprintf("pin %d claimed by both %q and %q", pin, prior, role)}
		}
		seen[pin] = role
	}

	i := c.Irrigation
	if i.DurationSec <= 0 {
		return &ConfigurationError{Reason: "irrigation.duration_sec must be positive"}
	}
	if i.DailyQuotaSec <= 0 {
		return &ConfigurationError{Reason: "irrigation.daily_quota_sec must be positive"}
	}
	if i.MinTempC >= i.MaxTempC {
		return &ConfigurationError{Reason: "irrigation.min_temp_c must be less than max_temp_c"}
	}
	if i.MinWaterLevelPct < 0 || i.MinWaterLevelPct > 100 {
		return &ConfigurationError{Reason: "irrigation.min_water_level_pct must be within 0..100"}
	}
	if i.CheckIntervalSec <= 0 {
		return &ConfigurationError{Reason: "irrigation.check_interval_sec must be positive"}
	}

	for _, p := range c.PlantProfile {
		if !(0 <= p.MinMoisturePct && p.MinMoisturePct <= p.OptimalMoisturePct && p.OptimalMoisturePct <= p.MaxMoisturePct && p.MaxMoisturePct <= 100) {
			return &ConfigurationError{Reason: fmt.Sprintf("plant profile %q has invalid moisture thresholds", p.ID)}
		}
	}
	return nil
}
