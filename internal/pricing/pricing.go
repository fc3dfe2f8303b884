package pricing

import (
	"github.com/shopspring/decimal"

	"power-price-level/internal/rules"
)

// HoursPerDay is the length of a canonical hourly series.
const HoursPerDay = 24

// dstPlaceholder is written to hour index 2 on a 23-hour day. Inherited from
// the legacy template the series replaces.
const dstPlaceholder = 10.0

// QuarterHours holds one calendar day of 15-minute spot prices; nil is a
// missing sample.
type QuarterHours []*float64

// HourlyPrice is a day of hourly prices indexed by local hour.
type HourlyPrice []*float64

// Tariff carries the surcharges added on top of the spot price.
type Tariff struct {
	DayRate        float64
	NightRate      float64
	AdditionalRate float64
	NightStart     int
	NightEnd       int
}

// TariffFromRules extracts the grid surcharges from a rule config. The night
// rate applies from midnight up to the level night end; the grid night window
// is only echoed on the price entity.
func TariffFromRules(cfg rules.Config) Tariff {
	return Tariff{
		DayRate:        cfg.GridDayRate,
		NightRate:      cfg.GridNightRate,
		AdditionalRate: cfg.AdditionalRate,
		NightStart:     0,
		NightEnd:       cfg.NightHourEnd,
	}
}

func (t Tariff) rateFor(hour int) float64 {
	if rules.InWindow(hour, t.NightStart, t.NightEnd) {
		return t.NightRate
	}
	return t.DayRate
}

// ToHourly averages consecutive runs of four samples. A trailing partial run is
// averaged over what it has; an hour with no present samples stays nil.
func ToHourly(q QuarterHours) []*float64 {
	count := (len(q) + 3) / 4
	hourly := make([]*float64, 0, count)
	for h := 0; h < count; h++ {
		end := min(h*4+4, len(q))
		sum := 0.0
		n := 0
		for _, v := range q[h*4 : end] {
			if v == nil {
				continue
			}
			sum += *v
			n++
		}
		if n == 0 {
			hourly = append(hourly, nil)
			continue
		}
		avg := sum / float64(n)
		hourly = append(hourly, &avg)
	}
	return hourly
}

// CorrectDST normalises a 23 or 25 hour day to 24 slots. A missing hour is
// filled by repeating hour 1; the repeated hour on a long day is merged into
// slot 2.
func CorrectDST(hourly []*float64) []*float64 {
	switch len(hourly) {
	case 23:
		out := make([]*float64, 0, HoursPerDay)
		out = append(out, hourly[:2]...)
		out = append(out, hourly[1])
		return append(out, hourly[2:]...)
	case 25:
		merged := hourly[2]
		if hourly[2] != nil && hourly[3] != nil {
			avg := (*hourly[2] + *hourly[3]) / 2
			merged = &avg
		}
		out := make([]*float64, 0, HoursPerDay)
		out = append(out, hourly[:2]...)
		out = append(out, merged)
		return append(out, hourly[4:]...)
	default:
		return hourly
	}
}

// BuildDaily adds the tariff to every hour and returns exactly 24 slots.
//
// When wasDST23 is set hourly is the uncorrected 23-hour series and hours from
// index 2 onward read one slot back, which lines the source up with the slot
// inserted by CorrectDST. An absent source value falls back to the preceding
// slot.
func BuildDaily(hourly []*float64, tariff Tariff, wasDST23 bool) HourlyPrice {
	out := make(HourlyPrice, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		idx := h
		if wasDST23 && h >= 2 {
			idx = h - 1
		}

		var src *float64
		if idx < len(hourly) {
			src = hourly[idx]
			if src == nil && idx > 0 {
				src = hourly[idx-1]
			}
		}
		if src != nil {
			v := addRates(*src, tariff.rateFor(h), tariff.AdditionalRate)
			out[h] = &v
		}

		if wasDST23 && h == 2 {
			v := dstPlaceholder
			out[h] = &v
		}
	}
	return out
}

// Build runs the whole quarter-hour to retail pipeline. The series is DST
// corrected before the tariff is applied, so a short day repeats hour 1 in
// slot 2. Empty input yields 24 absent slots.
func Build(q QuarterHours, tariff Tariff) HourlyPrice {
	hourly := CorrectDST(ToHourly(q))
	return BuildDaily(hourly, tariff, len(hourly) == 23)
}

// Round4 rounds half away from zero to four decimal places.
func Round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

func addRates(spot, grid, additional float64) float64 {
	return decimal.NewFromFloat(spot).
		Add(decimal.NewFromFloat(grid)).
		Add(decimal.NewFromFloat(additional)).
		Round(4).
		InexactFloat64()
}

// At returns the value at hour, or nil when the slot is missing.
func (p HourlyPrice) At(hour int) *float64 {
	if hour < 0 || hour >= len(p) {
		return nil
	}
	return p[hour]
}

// Present reports whether any slot has a value.
func (p HourlyPrice) Present() bool {
	for _, v := range p {
		if v != nil {
			return true
		}
	}
	return false
}
