package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"power-price-level/internal/level"
	"power-price-level/internal/pricing"
)

// PriceDay is the persisted hourly series and level forecast of one local day.
type PriceDay struct {
	Day          time.Time
	SourceEntity string
	Currency     string
	Hourly       pricing.HourlyPrice
	Levels       []level.Level
	AveragePrice decimal.Decimal
	UpdatedAt    time.Time
}

// NewPriceDay assembles a PriceDay and computes its average over present hours.
func NewPriceDay(day time.Time, source, currency string, hourly pricing.HourlyPrice, levels []level.Level) PriceDay {
	sum := decimal.Zero
	n := int64(0)
	for _, v := range hourly {
		if v == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*v))
		n++
	}
	avg := decimal.Zero
	if n > 0 {
		avg = sum.Div(decimal.NewFromInt(n)).Round(4)
	}

	return PriceDay{
		Day:          time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		SourceEntity: source,
		Currency:     currency,
		Hourly:       hourly,
		Levels:       levels,
		AveragePrice: avg,
	}
}
