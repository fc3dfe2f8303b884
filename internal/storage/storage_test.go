package storage

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"power-price-level/internal/level"
	"power-price-level/internal/pricing"
)

func TestNewPriceDayAverage(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	hourly := pricing.HourlyPrice{lo.ToPtr(1.0), nil, lo.ToPtr(2.0), lo.ToPtr(0.5)}
	day := NewPriceDay(time.Date(2025, 10, 26, 0, 30, 0, 0, oslo), "sensor.nordpool", "NOK", hourly, nil)

	assert.Equal(t, time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC), day.Day)
	assert.Equal(t, "1.1667", day.AveragePrice.String())
	assert.Equal(t, "NOK", day.Currency)
}

func TestNewPriceDayWithoutPrices(t *testing.T) {
	day := NewPriceDay(time.Now(), "sensor.nordpool", "EUR", pricing.HourlyPrice{nil, nil}, nil)
	assert.True(t, day.AveragePrice.IsZero())
}

func TestPriceDayColumnsRoundTrip(t *testing.T) {
	in := PriceDay{
		Hourly: pricing.HourlyPrice{lo.ToPtr(1.2345), nil},
		Levels: []level.Level{level.CheapestHour, level.Unavailable},
	}

	hourly, levels, err := encodePriceDay(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[1.2345, null]`, string(hourly))
	assert.JSONEq(t, `["cheapest_hour", "unavailable"]`, string(levels))

	var out PriceDay
	require.NoError(t, decodePriceDay(&out, hourly, levels, "1.2345"))
	assert.Equal(t, in.Hourly, out.Hourly)
	assert.Equal(t, in.Levels, out.Levels)
	assert.Equal(t, "1.2345", out.AveragePrice.String())
}

func TestDecodePriceDayRejectsUnknownLevel(t *testing.T) {
	var out PriceDay
	err := decodePriceDay(&out, []byte(`[]`), []byte(`["bargain"]`), "0")
	assert.Error(t, err)
}

func TestStoreWithoutPool(t *testing.T) {
	var s *Store
	ctx := context.Background()

	_, err := s.ListRecentDays(ctx, 5)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.ErrorIs(t, s.UpsertPriceDay(ctx, PriceDay{}), ErrNotConfigured)
	_, _, err = s.TryAdvisoryLock(ctx, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	s.Close()
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS price_days")
}

var _ PriceDayStore = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
