package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_FillsDefaultsWhenSilent(t *testing.T) {
	path := writeConfig(t, `
pins:
  soil_moisture_pin: 1
  dht_pin: 2
  rain_pin: 3
  water_level_pin: 4
  pump_relay_pin: 5
  led_red_pin: 6
  led_green_pin: 7
  led_yellow_pin: 8
  led_white_pin: 9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultIrrigationSettings(), cfg.Irrigation)
	assert.Len(t, cfg.PlantProfile, 1)
	assert.Equal(t, "tomato", cfg.ActivePlant)
}

func TestLoad_RejectsDoubleClaimedPin(t *testing.T) {
	path := writeConfig(t, `
pins:
  soil_moisture_pin: 1
  dht_pin: 1
  rain_pin: 3
  water_level_pin: 4
  pump_relay_pin: 5
  led_red_pin: 6
  led_green_pin: 7
  led_yellow_pin: 8
  led_white_pin: 9
`)

	_, err := Load(path)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_RejectsInvalidTempThresholds(t *testing.T) {
	path := writeConfig(t, `
pins:
  soil_moisture_pin: 1
  dht_pin: 2
  rain_pin: 3
  water_level_pin: 4
  pump_relay_pin: 5
  led_red_pin: 6
  led_green_pin: 7
  led_yellow_pin: 8
  led_white_pin: 9
irrigation:
  min_temp_c: 40
  max_temp_c: 10
  duration_sec: 30
  daily_quota_sec: 300
  check_interval_sec: 300
  min_water_level_pct: 20
`)

	_, err := Load(path)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_MissingFileIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSelectedPlant_ReturnsActiveProfile(t *testing.T) {
	path := writeConfig(t, `
pins:
  soil_moisture_pin: 1
  dht_pin: 2
  rain_pin: 3
  water_level_pin: 4
  pump_relay_pin: 5
  led_red_pin: 6
  led_green_pin: 7
  led_yellow_pin: 8
  led_white_pin: 9
plant_profiles:
  - id: basil
    name: Basil
    min_moisture_pct: 35
    optimal_moisture_pct: 55
    max_moisture_pct: 75
active_plant: basil
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	profile, err := cfg.SelectedPlant()
	require.NoError(t, err)
	assert.Equal(t, "basil", profile.ID)
}

func TestSelectedPlant_UnknownIDIsConfigurationError(t *testing.T) {
	cfg := &Config{ActivePlant: "nope", PlantProfile: []PlantProfile{DefaultPlantProfile()}}
	_, err := cfg.SelectedPlant()
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
