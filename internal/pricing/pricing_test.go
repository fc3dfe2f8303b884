package pricing

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"power-price-level/internal/rules"
)

func quarters(n int, value func(i int) float64) QuarterHours {
	q := make(QuarterHours, n)
	for i := range q {
		q[i] = lo.ToPtr(value(i))
	}
	return q
}

func values(t *testing.T, series []*float64) []float64 {
	t.Helper()
	out := make([]float64, len(series))
	for i, v := range series {
		require.NotNil(t, v, "slot %d", i)
		out[i] = *v
	}
	return out
}

func TestToHourlyAveragesGroups(t *testing.T) {
	q := QuarterHours{lo.ToPtr(1.0), lo.ToPtr(2.0), lo.ToPtr(3.0), lo.ToPtr(4.0), nil, lo.ToPtr(6.0), nil, nil, nil, nil, nil, nil, lo.ToPtr(9.0)}

	hourly := ToHourly(q)

	require.Len(t, hourly, 4)
	assert.InDelta(t, 2.5, *hourly[0], 1e-9)
	assert.InDelta(t, 6.0, *hourly[1], 1e-9)
	assert.Nil(t, hourly[2])
	assert.InDelta(t, 9.0, *hourly[3], 1e-9)
}

func TestToHourlyEmpty(t *testing.T) {
	assert.Empty(t, ToHourly(nil))
	assert.Len(t, Build(nil, Tariff{}), HoursPerDay)
	assert.False(t, Build(nil, Tariff{}).Present())
}

func TestCorrectDSTLengths(t *testing.T) {
	for _, n := range []int{92, 96, 100} {
		hourly := ToHourly(quarters(n, func(i int) float64 { return float64(i / 4) }))
		assert.Len(t, CorrectDST(hourly), HoursPerDay, "samples=%d", n)
		assert.Len(t, Build(quarters(n, func(i int) float64 { return 1 }), Tariff{}), HoursPerDay, "samples=%d", n)
	}
}

func TestCorrectDSTShortDayRepeatsHourOne(t *testing.T) {
	hourly := ToHourly(quarters(92, func(i int) float64 { return float64(i / 4) }))
	require.Len(t, hourly, 23)

	got := values(t, CorrectDST(hourly))

	assert.Equal(t, []float64{0, 1, 1, 2, 3}, got[:5])
	assert.Equal(t, 22.0, got[23])
}

func TestCorrectDSTLongDayMergesRepeatedHour(t *testing.T) {
	hourly := ToHourly(quarters(100, func(i int) float64 { return float64(i / 4) }))
	require.Len(t, hourly, 25)

	got := values(t, CorrectDST(hourly))

	assert.Equal(t, []float64{0, 1, 2.5, 4, 5}, got[:5])
	assert.Equal(t, 24.0, got[23])

	hourly[3] = nil
	merged := CorrectDST(hourly)
	assert.Equal(t, 2.0, *merged[2])
}

func TestBuildDailyNightWindowWraps(t *testing.T) {
	hourly := make([]*float64, HoursPerDay)
	for i := range hourly {
		hourly[i] = lo.ToPtr(1.0)
	}
	tariff := Tariff{DayRate: 0.5, NightRate: 0.1, NightStart: 22, NightEnd: 6}

	got := values(t, BuildDaily(hourly, tariff, false))

	for h, v := range got {
		want := 1.5
		if h >= 22 || h < 6 {
			want = 1.1
		}
		assert.Equal(t, want, v, "hour %d", h)
	}
}

func TestBuildDailyFallsBackToPreviousHour(t *testing.T) {
	hourly := make([]*float64, HoursPerDay)
	for i := range hourly {
		hourly[i] = lo.ToPtr(float64(i))
	}
	hourly[5] = nil
	hourly[0] = nil

	got := BuildDaily(hourly, Tariff{DayRate: 1}, false)

	assert.Nil(t, got[0])
	require.NotNil(t, got[5])
	assert.Equal(t, 5.0, *got[5])
}

func TestBuildDailyShortDay(t *testing.T) {
	q := quarters(92, func(i int) float64 { return float64(i/4) * 10 })
	hourly := ToHourly(q)
	require.Len(t, hourly, 23)

	got := BuildDaily(hourly, Tariff{}, true)

	require.Len(t, got, HoursPerDay)
	assert.Equal(t, 10.0, *got[2])
	assert.Equal(t, *hourly[2], *got[3])
	assert.Equal(t, *hourly[22], *got[23])
}

func TestBuildShortDayHasNoPlaceholder(t *testing.T) {
	q := quarters(92, func(i int) float64 { return 0.5 + 0.01*float64(i/4) })
	tariff := Tariff{DayRate: 0.25, NightRate: 0.1, NightStart: 0, NightEnd: 6}

	got := values(t, Build(q, tariff))

	require.Len(t, got, HoursPerDay)
	assert.Equal(t, 0.61, got[1])
	assert.Equal(t, 0.61, got[2])
	assert.Equal(t, 0.62, got[3])
	assert.Equal(t, 0.97, got[23])
	assert.NotContains(t, got, dstPlaceholder)
}

func TestBuildEndToEnd(t *testing.T) {
	q := quarters(96, func(i int) float64 { return float64(i/4+1) * 10 })
	tariff := Tariff{DayRate: 1, NightRate: 2, AdditionalRate: 0.5, NightStart: 0, NightEnd: 6}

	got := values(t, Build(q, tariff))

	require.Len(t, got, HoursPerDay)
	for h, v := range got {
		spot := float64(h+1) * 10
		if h < 6 {
			assert.Equal(t, spot+2.5, v, "hour %d", h)
		} else {
			assert.Equal(t, spot+1.5, v, "hour %d", h)
		}
		if h > 0 {
			assert.Greater(t, v, got[h-1])
		}
	}
}

func TestRoundingToFourDecimals(t *testing.T) {
	hourly := []*float64{lo.ToPtr(0.123456)}
	got := BuildDaily(hourly, Tariff{DayRate: 0.00004, AdditionalRate: 0.1}, false)
	assert.Equal(t, 0.2235, *got[0])
	assert.Equal(t, 1.2346, Round4(1.23456))
}

func TestTariffNightRunsFromMidnightToNightEnd(t *testing.T) {
	cfg := rules.Config{
		GridDayRate:    1,
		GridNightRate:  2,
		NightHourStart: 22,
		NightHourEnd:   6,
		GridNightStart: 22,
		GridNightEnd:   6,
	}
	tariff := TariffFromRules(cfg)
	assert.Equal(t, 2.0, tariff.rateFor(0))
	assert.Equal(t, 2.0, tariff.rateFor(5))
	assert.Equal(t, 1.0, tariff.rateFor(6))
	assert.Equal(t, 1.0, tariff.rateFor(22))
	assert.Equal(t, 1.0, tariff.rateFor(23))

	got := values(t, Build(quarters(96, func(int) float64 { return 0 }), tariff))
	assert.Equal(t, 2.0, got[0])
	assert.Equal(t, 1.0, got[22])
	assert.Equal(t, 1.0, got[23])
}
