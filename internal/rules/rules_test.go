package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() Options {
	return Options{
		NightHourStart:      22,
		NightHourEnd:        6,
		DayHourEnd:          15,
		CheapHoursCount:     5,
		ExpensiveHoursCount: 5,
		CheapHoursNight:     2,
		CheapHoursDay:       2,
		CheapHoursEvening:   2,
		GridNightStart:      22,
		GridNightEnd:        6,
		Language:            "en",
		Currency:            "NOK",
	}
}

func TestNewAcceptsValidOptions(t *testing.T) {
	cfg, err := New(validOptions())
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.DayHourEnd)
}

func TestNewRejectsInconsistentOptions(t *testing.T) {
	cases := map[string]func(o *Options){
		"day before night end":   func(o *Options) { o.DayHourEnd = 6 },
		"hour out of range":      func(o *Options) { o.NightHourStart = 25 },
		"grid hour negative":     func(o *Options) { o.GridNightEnd = -1 },
		"too many counted hours": func(o *Options) { o.CheapHoursCount, o.ExpensiveHoursCount = 12, 13 },
		"period count too large": func(o *Options) { o.CheapHoursEvening = 9 },
		"negative count":         func(o *Options) { o.CheapHoursDay = -1 },
		"negative threshold":     func(o *Options) { o.CheapPriceThreshold = -0.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := validOptions()
			mutate(&opts)
			_, err := New(opts)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestWindows(t *testing.T) {
	cfg, err := New(validOptions())
	require.NoError(t, err)

	assert.True(t, cfg.InNight(23))
	assert.True(t, cfg.InNight(2))
	assert.False(t, cfg.InNight(10))
	assert.True(t, cfg.InDay(6))
	assert.False(t, cfg.InDay(15))
	assert.True(t, cfg.InEvening(15))
	assert.True(t, cfg.InEvening(23))

	assert.True(t, InWindow(0, 0, 6))
	assert.False(t, InWindow(6, 0, 6))
	assert.True(t, InWindow(13, 6, 6), "equal bounds cover the whole day")
}
