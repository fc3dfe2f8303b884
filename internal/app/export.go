package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"power-price-level/internal/level"
	"power-price-level/internal/storage"
)

// Export renders a stored day as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	day := opts.Day
	if day.IsZero() {
		day = time.Now().In(a.Config.Location())
	}
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	record, err := store.GetPriceDay(ctx, date, a.Config.Host.SourceEntity)
	if err != nil {
		return err
	}

	a.Logger.Info().Str("day", date.Format(time.DateOnly)).Msg("exporting price day")

	if opts.CSVPath != "" {
		if err := a.writeFile(opts.CSVPath, func(w io.Writer) error {
			return writeDayCSV(w, record, a.Config.Location(), a.Config.Sensor.Language)
		}); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := a.writeFile(opts.PNGPath, func(w io.Writer) error {
			return writeDayPNG(w, record, a.Config.Location(), a.Config.Export.ChartWidth, a.Config.Export.ChartHeight)
		}); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) writeFile(path string, render func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return render(file)
}

// hourStart returns the local start of hour h on the stored day.
func hourStart(day storage.PriceDay, loc *time.Location, h int) time.Time {
	return time.Date(day.Day.Year(), day.Day.Month(), day.Day.Day(), h, 0, 0, 0, loc)
}

func writeDayCSV(w io.Writer, day storage.PriceDay, loc *time.Location, language string) error {
	writer := csv.NewWriter(w)

	header := []string{"hour", "start", "price", "currency", "level", "label"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for h, v := range day.Hourly {
		price := ""
		if v != nil {
			price = strconv.FormatFloat(*v, 'f', 4, 64)
		}
		lvl := level.Unavailable
		if h < len(day.Levels) {
			lvl = day.Levels[h]
		}
		record := []string{
			strconv.Itoa(h),
			hourStart(day, loc, h).Format(time.RFC3339),
			price,
			day.Currency,
			lvl.String(),
			lvl.Text(language),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeDayPNG(w io.Writer, day storage.PriceDay, loc *time.Location, width, height int) error {
	var (
		x       []time.Time
		prices  []float64
		average []float64
	)
	avg := day.AveragePrice.InexactFloat64()
	for h, v := range day.Hourly {
		if v == nil {
			continue
		}
		x = append(x, hourStart(day, loc, h))
		prices = append(prices, *v)
		average = append(average, avg)
	}
	if len(x) < 2 {
		return fmt.Errorf("not enough prices to chart %s", day.Day.Format(time.DateOnly))
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Title:  day.Day.Format(time.DateOnly),
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeHourValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (" + day.Currency + "/kWh)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Price",
				XValues: x,
				YValues: prices,
			},
			chart.TimeSeries{
				Name:    "Average",
				XValues: x,
				YValues: average,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
