package app

import (
	"context"
	"errors"
	"slices"
	"time"

	"power-price-level/internal/level"
	"power-price-level/internal/storage"
)

// Recompute reclassifies stored days with the configured rules, e.g. after the
// level thresholds changed. Stored prices are kept as they are.
func (a *App) Recompute(ctx context.Context, opts RecomputeOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot recompute")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.DryRun {
		a.Logger.Warn().Msg("recompute dry-run: nothing is written")
	}

	days, err := store.ListRecentDays(ctx, opts.Limit)
	if err != nil {
		return err
	}

	updated := 0
	for _, day := range days {
		next, changed := a.reclassify(day)
		if !changed {
			continue
		}
		updated++
		a.Logger.Info().
			Str("day", day.Day.Format(time.DateOnly)).
			Str("source_entity", day.SourceEntity).
			Msg("levels changed")
		if opts.DryRun {
			continue
		}
		if err := store.UpsertPriceDay(ctx, next); err != nil {
			return err
		}
	}

	a.Logger.Info().Int("days", len(days)).Int("updated", updated).Msg("recompute finished")
	return nil
}

func (a *App) reclassify(day storage.PriceDay) (storage.PriceDay, bool) {
	levels := level.ClassifyDay(day.Hourly, a.Config.Rules())
	if slices.Equal(levels, day.Levels) {
		return day, false
	}
	next := storage.NewPriceDay(day.Day, day.SourceEntity, day.Currency, day.Hourly, levels)
	return next, true
}
