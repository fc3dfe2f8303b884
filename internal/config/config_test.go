package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"power-price-level/internal/rules"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, time.Minute, cfg.Watcher.Interval)
	assert.Equal(t, "Europe/Oslo", cfg.Location().String())
	assert.Equal(t, "NOK", cfg.Sensor.Currency)
	assert.Equal(t, "en", cfg.Sensor.Language)

	r := cfg.Rules()
	assert.Equal(t, 22, r.NightHourStart)
	assert.Equal(t, 6, r.NightHourEnd)
	assert.Equal(t, 15, r.DayHourEnd)
	assert.Equal(t, 5, r.CheapHoursCount)
	assert.Equal(t, 2, r.CheapHoursEvening)
}

func TestLoadDecimalCommaAndNormalisation(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pricing:
  grid_day: "0,4512"
  grid_night: "0,3012"
  additional: 0.05
levels:
  cheap_price: "0,25"
sensor:
  currency: GBP
  language: Svenska
`))
	require.NoError(t, err)

	r := cfg.Rules()
	assert.InDelta(t, 0.4512, r.GridDayRate, 1e-9)
	assert.InDelta(t, 0.3012, r.GridNightRate, 1e-9)
	assert.InDelta(t, 0.05, r.AdditionalRate, 1e-9)
	assert.InDelta(t, 0.25, r.CheapPriceThreshold, 1e-9)
	assert.Equal(t, "NOK", r.Currency)
	assert.Equal(t, "sv", r.Language)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POWERPRICE_HOST_TOKEN", "from-env")
	t.Setenv("POWERPRICE_LEVELS_CHEAP_HOURS", "3")

	cfg, err := Load(writeConfig(t, "host:\n  token: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Host.Token)
	assert.Equal(t, 3, cfg.Rules().CheapHoursCount)
}

func TestLoadRejectsInconsistentRules(t *testing.T) {
	_, err := Load(writeConfig(t, `
levels:
  night_hour_end: 16
  day_hour_end: 15
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, rules.ErrInvalidConfig))
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  timezone: Mars/Olympus\n"))
	assert.ErrorContains(t, err, "app.timezone")
}

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"0,4512":  0.4512,
		"1 000,5": 1000.5,
		" 2.25 ":  2.25,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	_, err := ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, `
levels:
  cheapest_hours: 3
`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "cheapest_hours")
}
