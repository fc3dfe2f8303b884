package sensor

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/samber/lo"

	"power-price-level/internal/level"
	"power-price-level/internal/pricing"
	"power-price-level/internal/rules"
)

// DefaultCurrency is used when the configured currency is not supported.
const DefaultCurrency = "NOK"

// Reasons reported by an unavailable level sensor.
const (
	ReasonNoPrices          = "no_prices"
	ReasonSourceUnavailable = "source_unavailable"
)

const unknownState = "unknown"

var currencyUnits = map[string]string{
	"NOK": "NOK/kWh",
	"DKK": "DKK/kWh",
	"SEK": "SEK/kWh",
	"EUR": "EUR/kWh",
}

// NormalizeCurrency returns code when supported, else DefaultCurrency.
func NormalizeCurrency(code string) string {
	if _, ok := currencyUnits[code]; ok {
		return code
	}
	return DefaultCurrency
}

// UnitFor returns the unit of measurement shown for a currency.
func UnitFor(code string) string {
	return currencyUnits[NormalizeCurrency(code)]
}

// Snapshot is one entity state as pushed to the host state store.
type Snapshot struct {
	EntityID   string `json:"entity_id" yaml:"entity_id"`
	State      string `json:"state" yaml:"state"`
	Attributes any    `json:"attributes" yaml:"attributes"`
}

// PriceConfig echoes the tariff the prices were built with.
type PriceConfig struct {
	GridDay        float64 `json:"grid_day" yaml:"grid_day"`
	GridNight      float64 `json:"grid_night" yaml:"grid_night"`
	GridNightStart int     `json:"grid_night_start" yaml:"grid_night_start"`
	GridNightEnd   int     `json:"grid_night_end" yaml:"grid_night_end"`
	Additional     float64 `json:"additional" yaml:"additional"`
}

// PriceDays holds the hourly series of today and tomorrow.
type PriceDays struct {
	Today    pricing.HourlyPrice `json:"today" yaml:"today"`
	Tomorrow pricing.HourlyPrice `json:"tomorrow" yaml:"tomorrow"`
}

// RawHour is one hour of the series with its local time bounds.
type RawHour struct {
	Start string  `json:"start" yaml:"start"`
	End   string  `json:"end" yaml:"end"`
	Value float64 `json:"value" yaml:"value"`
}

// PriceAttributes are the attributes of the price entity.
type PriceAttributes struct {
	FriendlyName      string      `json:"friendly_name" yaml:"friendly_name"`
	UnitOfMeasurement string      `json:"unit_of_measurement" yaml:"unit_of_measurement"`
	Icon              string      `json:"icon" yaml:"icon"`
	StateClass        string      `json:"state_class" yaml:"state_class"`
	Config            PriceConfig `json:"config" yaml:"config"`
	Prices            PriceDays   `json:"prices" yaml:"prices"`
	RawToday          []RawHour   `json:"raw_today" yaml:"raw_today"`
	RawTomorrow       []RawHour   `json:"raw_tomorrow" yaml:"raw_tomorrow"`
}

// LevelConfig echoes the level rules.
type LevelConfig struct {
	NightHourEnd      int     `json:"night_hour_end" yaml:"night_hour_end"`
	DayHourEnd        int     `json:"day_hour_end" yaml:"day_hour_end"`
	CheapPrice        float64 `json:"cheap_price" yaml:"cheap_price"`
	CheapHours        int     `json:"cheap_hours" yaml:"cheap_hours"`
	ExpensiveHours    int     `json:"expensive_hours" yaml:"expensive_hours"`
	CheapHoursNight   int     `json:"cheap_hours_night" yaml:"cheap_hours_night"`
	CheapHoursDay     int     `json:"cheap_hours_day" yaml:"cheap_hours_day"`
	CheapHoursEvening int     `json:"cheap_hours_evening" yaml:"cheap_hours_evening"`
}

// LevelDays holds the localized level forecast of today and tomorrow.
type LevelDays struct {
	Today    []string `json:"today" yaml:"today"`
	Tomorrow []string `json:"tomorrow" yaml:"tomorrow"`
}

// LevelAttributes are the attributes of the level entity.
type LevelAttributes struct {
	FriendlyName string      `json:"friendly_name" yaml:"friendly_name"`
	Icon         string      `json:"icon" yaml:"icon"`
	SourceEntity string      `json:"source_entity" yaml:"source_entity"`
	Config       LevelConfig `json:"config" yaml:"config"`
	Prices       LevelDays   `json:"prices" yaml:"prices"`
	Reason       string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// PriceInput is everything needed to render the price entity.
type PriceInput struct {
	EntityID string
	Name     string
	Rules    rules.Config
	Today    pricing.HourlyPrice
	Tomorrow pricing.HourlyPrice
	// Now is the current time in the local zone of the series.
	Now time.Time
}

// NewPriceSnapshot renders the price entity. The state is the price of the
// current local hour, or unknown when that hour has no price.
func NewPriceSnapshot(in PriceInput) Snapshot {
	state := unknownState
	if v := in.Today.At(in.Now.Hour()); v != nil {
		state = fmt.Sprintf("%.4f", *v)
	}

	startToday := now.With(in.Now).BeginningOfDay()
	attrs := PriceAttributes{
		FriendlyName:      in.Name,
		UnitOfMeasurement: UnitFor(in.Rules.Currency),
		Icon:              "mdi:cash-clock",
		StateClass:        "total",
		Config: PriceConfig{
			GridDay:        in.Rules.GridDayRate,
			GridNight:      in.Rules.GridNightRate,
			GridNightStart: in.Rules.GridNightStart,
			GridNightEnd:   in.Rules.GridNightEnd,
			Additional:     in.Rules.AdditionalRate,
		},
		Prices: PriceDays{
			Today:    nonNil(in.Today),
			Tomorrow: nonNil(in.Tomorrow),
		},
		RawToday:    rawHours(startToday, in.Today),
		RawTomorrow: rawHours(startToday.AddDate(0, 0, 1), in.Tomorrow),
	}

	return Snapshot{EntityID: in.EntityID, State: state, Attributes: attrs}
}

// rawHours lays the series out on local wall-clock hours starting at day.
// Absent prices are reported as 0.
func rawHours(day time.Time, prices pricing.HourlyPrice) []RawHour {
	return lo.Map(prices, func(v *float64, i int) RawHour {
		start := time.Date(day.Year(), day.Month(), day.Day(), i, 0, 0, 0, day.Location())
		end := time.Date(day.Year(), day.Month(), day.Day(), i+1, 0, 0, 0, day.Location())
		return RawHour{
			Start: start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			Value: lo.FromPtr(v),
		}
	})
}

// LevelInput is everything needed to render the level entity.
type LevelInput struct {
	EntityID     string
	Name         string
	// SourceEntity is the price entity the levels were derived from.
	SourceEntity string
	Rules        rules.Config
	Today        pricing.HourlyPrice
	Tomorrow     pricing.HourlyPrice
	Hour         int
	// Reason is reported when no prices could be read at all.
	Reason string
}

// NewLevelSnapshot classifies the current hour and both days.
func NewLevelSnapshot(in LevelInput) Snapshot {
	labels := level.LabelsFor(in.Rules.Language)
	render := func(levels []level.Level) []string {
		return lo.Map(levels, func(l level.Level, _ int) string { return labels.Text(l) })
	}

	current := level.Classify(in.Hour, in.Today, in.Rules)
	reason := in.Reason
	if reason == "" && !in.Today.Present() {
		reason = ReasonNoPrices
	}

	attrs := LevelAttributes{
		FriendlyName: in.Name + " Level",
		Icon:         "mdi:cash-multiple",
		SourceEntity: in.SourceEntity,
		Config: LevelConfig{
			NightHourEnd:      in.Rules.NightHourEnd,
			DayHourEnd:        in.Rules.DayHourEnd,
			CheapPrice:        in.Rules.CheapPriceThreshold,
			CheapHours:        in.Rules.CheapHoursCount,
			ExpensiveHours:    in.Rules.ExpensiveHoursCount,
			CheapHoursNight:   in.Rules.CheapHoursNight,
			CheapHoursDay:     in.Rules.CheapHoursDay,
			CheapHoursEvening: in.Rules.CheapHoursEvening,
		},
		Prices: LevelDays{
			Today:    render(level.ClassifyDay(in.Today, in.Rules)),
			Tomorrow: render(level.ClassifyDay(in.Tomorrow, in.Rules)),
		},
		Reason: reason,
	}

	return Snapshot{EntityID: in.EntityID, State: labels.Text(current), Attributes: attrs}
}

func nonNil(p pricing.HourlyPrice) pricing.HourlyPrice {
	if p == nil {
		return pricing.HourlyPrice{}
	}
	return p
}
