package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"power-price-level/internal/level"
	"power-price-level/internal/storage"
)

// Show prints recent stored days.
func (a *App) Show(ctx context.Context, opts ShowOptions, out io.Writer) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show price days")
	}
	if closeStore != nil {
		defer closeStore()
	}

	days, err := store.ListRecentDays(ctx, opts.Limit)
	if err != nil {
		return err
	}
	return writeDaysTable(out, days)
}

func writeDaysTable(out io.Writer, days []storage.PriceDay) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(out, "no price days found")
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Day\tSource\tCurrency\tAverage\tMin\tMax\tHours\tCheapest\tUpdated (UTC)")

	for _, day := range days {
		present := presentPrices(day)
		cheapest := lo.IndexOf(day.Levels, level.CheapestHour)
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			day.Day.Format(time.DateOnly),
			day.SourceEntity,
			day.Currency,
			formatDecimal(day.AveragePrice, 4),
			formatPrice(lo.Min(present)),
			formatPrice(lo.Max(present)),
			len(present),
			formatHour(cheapest),
			day.UpdatedAt.UTC().Format(time.RFC3339),
		)
	}

	return writer.Flush()
}

func presentPrices(day storage.PriceDay) []float64 {
	return lo.FilterMap(day.Hourly, func(v *float64, _ int) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	})
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func formatHour(h int) string {
	if h < 0 {
		return "-"
	}
	return fmt.Sprintf("%02d:00", h)
}
