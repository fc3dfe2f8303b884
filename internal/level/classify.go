package level

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"power-price-level/internal/pricing"
	"power-price-level/internal/rules"
)

// priceKey is the price in 1/10000 units, so values rounded independently
// compare equal when they agree to four decimals.
func priceKey(v float64) int64 {
	return decimal.NewFromFloat(v).Round(4).Shift(4).IntPart()
}

// Classify returns the level of day[hour]. The first matching rule wins:
// cheap threshold, cheapest hour, cheapest hours, per-period cheap time, most
// expensive hour, most expensive hours, then normal or expensive against the
// day average.
func Classify(hour int, day pricing.HourlyPrice, cfg rules.Config) Level {
	if len(day) < pricing.HoursPerDay || hour < 0 || hour >= pricing.HoursPerDay {
		return Unavailable
	}
	day = day[:pricing.HoursPerDay]

	current := day[hour]
	if current == nil {
		return Unavailable
	}
	price := *current

	present := lo.Filter(day, func(v *float64, _ int) bool { return v != nil })
	if len(present) == 0 {
		return Unavailable
	}
	average := lo.SumBy(present, func(v *float64) float64 { return *v }) / float64(len(present))

	asc := sortAscending(day)
	desc := sortDescending(day)
	key := priceKey(price)

	if cfg.CheapPriceThreshold > 0 && price <= cfg.CheapPriceThreshold {
		return Cheap
	}
	if matches(asc[0], key) {
		return CheapestHour
	}
	if slices.Contains(lowestKeys(asc, cfg.CheapHoursCount), key) {
		return CheapestHours
	}
	if cheapInPeriod(hour, key, day, cfg) {
		return CheapTime
	}
	// Any absent value sorts last, so the maximum is only known for a full day.
	if matches(asc[len(asc)-1], key) {
		return MostExpensiveHour
	}
	if slices.Contains(lowestKeys(desc, cfg.ExpensiveHoursCount), key) {
		return MostExpensiveHours
	}
	if price <= average {
		return Normal
	}
	return Expensive
}

// ClassifyDay classifies every hour of day. An empty day yields no levels.
func ClassifyDay(day pricing.HourlyPrice, cfg rules.Config) []Level {
	if len(day) == 0 {
		return []Level{}
	}
	out := make([]Level, pricing.HoursPerDay)
	for h := range out {
		out[h] = Classify(h, day, cfg)
	}
	return out
}

func cheapInPeriod(hour int, key int64, day pricing.HourlyPrice, cfg rules.Config) bool {
	var night []*float64
	if cfg.NightHourStart < cfg.NightHourEnd {
		night = slices.Clone(day[cfg.NightHourStart:cfg.NightHourEnd])
	} else {
		night = append(slices.Clone(day[cfg.NightHourStart:]), day[:cfg.NightHourEnd]...)
	}
	daytime := day[cfg.NightHourEnd:cfg.DayHourEnd]
	evening := day[cfg.DayHourEnd:]

	switch {
	case cfg.InDay(hour) && slices.Contains(lowestKeys(sortAscending(daytime), cfg.CheapHoursDay), key):
		return true
	case cfg.InNight(hour) && slices.Contains(lowestKeys(sortAscending(night), cfg.CheapHoursNight), key):
		return true
	case cfg.InEvening(hour) && slices.Contains(lowestKeys(sortAscending(evening), cfg.CheapHoursEvening), key):
		return true
	}
	return false
}

// lowestKeys returns the keys of the first n present entries of sorted. Absent
// entries still use up a position.
func lowestKeys(sorted []*float64, n int) []int64 {
	n = min(max(0, n), len(sorted))
	keys := make([]int64, 0, n)
	for _, v := range sorted[:n] {
		if v != nil {
			keys = append(keys, priceKey(*v))
		}
	}
	return keys
}

func matches(v *float64, key int64) bool {
	return v != nil && priceKey(*v) == key
}

// sortAscending orders values low to high with absent values last.
func sortAscending(values []*float64) []*float64 {
	out := slices.Clone(values)
	slices.SortStableFunc(out, compareAbsentLast)
	return out
}

// sortDescending orders values high to low with absent values first.
func sortDescending(values []*float64) []*float64 {
	out := slices.Clone(values)
	slices.SortStableFunc(out, func(a, b *float64) int {
		return compareAbsentLast(b, a)
	})
	return out
}

func compareAbsentLast(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
