package rules

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a rule configuration that violates its invariants.
var ErrInvalidConfig = errors.New("rules: invalid configuration")

// MaxPeriodCheapHours bounds the per-period cheap hour counts.
const MaxPeriodCheapHours = 8

// Options is the raw, unvalidated input for New.
type Options struct {
	CheapPriceThreshold float64
	NightHourStart      int
	NightHourEnd        int
	DayHourEnd          int
	CheapHoursCount     int
	ExpensiveHoursCount int
	CheapHoursNight     int
	CheapHoursDay       int
	CheapHoursEvening   int

	GridDayRate    float64
	GridNightRate  float64
	AdditionalRate float64
	GridNightStart int
	GridNightEnd   int

	Language string
	Currency string
}

// Config is the validated rule set shared by the price builder and the level
// classifier. It is handed around by value and replaced wholesale on change.
type Config struct {
	CheapPriceThreshold float64
	NightHourStart      int
	NightHourEnd        int
	DayHourEnd          int
	CheapHoursCount     int
	ExpensiveHoursCount int
	CheapHoursNight     int
	CheapHoursDay       int
	CheapHoursEvening   int

	GridDayRate    float64
	GridNightRate  float64
	AdditionalRate float64
	GridNightStart int
	GridNightEnd   int

	Language string
	Currency string
}

// New validates opts and returns an immutable Config.
func New(opts Options) (Config, error) {
	cfg := Config(opts)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants New enforces.
func (c Config) Validate() error {
	hours := []struct {
		name  string
		value int
	}{
		{"night_hour_start", c.NightHourStart},
		{"night_hour_end", c.NightHourEnd},
		{"day_hour_end", c.DayHourEnd},
		{"grid_night_start", c.GridNightStart},
		{"grid_night_end", c.GridNightEnd},
	}
	for _, h := range hours {
		if h.value < 0 || h.value > 24 {
			return fmt.Errorf("%w: %s must be within [0,24], got %d", ErrInvalidConfig, h.name, h.value)
		}
	}
	if c.DayHourEnd <= c.NightHourEnd {
		return fmt.Errorf("%w: day_hour_end (%d) must be after night_hour_end (%d)", ErrInvalidConfig, c.DayHourEnd, c.NightHourEnd)
	}

	counts := []struct {
		name  string
		value int
		max   int
	}{
		{"cheap_hours", c.CheapHoursCount, 24},
		{"expensive_hours", c.ExpensiveHoursCount, 24},
		{"cheap_hours_night", c.CheapHoursNight, MaxPeriodCheapHours},
		{"cheap_hours_day", c.CheapHoursDay, MaxPeriodCheapHours},
		{"cheap_hours_evening", c.CheapHoursEvening, MaxPeriodCheapHours},
	}
	for _, n := range counts {
		if n.value < 0 || n.value > n.max {
			return fmt.Errorf("%w: %s must be within [0,%d], got %d", ErrInvalidConfig, n.name, n.max, n.value)
		}
	}
	if c.CheapHoursCount+c.ExpensiveHoursCount > 24 {
		return fmt.Errorf("%w: cheap_hours + expensive_hours must not exceed 24", ErrInvalidConfig)
	}
	if c.CheapPriceThreshold < 0 {
		return fmt.Errorf("%w: cheap_price cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// InWindow reports whether hour falls in [start, end), wrapping past midnight
// when start >= end.
func InWindow(hour, start, end int) bool {
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// InNight reports membership in the level night window.
func (c Config) InNight(hour int) bool {
	return InWindow(hour, c.NightHourStart, c.NightHourEnd)
}

// InDay reports membership in [NightHourEnd, DayHourEnd).
func (c Config) InDay(hour int) bool {
	return hour >= c.NightHourEnd && hour < c.DayHourEnd
}

// InEvening reports membership in [DayHourEnd, 24).
func (c Config) InEvening(hour int) bool {
	return hour >= c.DayHourEnd && hour < 24
}
