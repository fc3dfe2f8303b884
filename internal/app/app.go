package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"power-price-level/internal/config"
	"power-price-level/internal/fetcher"
	"power-price-level/internal/logging"
	"power-price-level/internal/publisher"
	"power-price-level/internal/service"
	"power-price-level/internal/storage"
	"power-price-level/internal/watcher"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) newFetcher() fetcher.SourceFetcher {
	return fetcher.NewStateStore(fetcher.StateStoreOptions{
		BaseURL:   a.Config.Host.BaseURL,
		Token:     a.Config.Host.Token,
		EntityID:  a.Config.Host.SourceEntity,
		Timeout:   a.Config.Host.RequestTimeout,
		UserAgent: a.Config.Host.UserAgent,
	}, a.Logger)
}

func (a *App) newPublisher() publisher.Publisher {
	if a.Config.Host.Token == "" {
		a.Logger.Warn().Msg("host.token not configured; states are logged only")
		return publisher.NewLog(a.Logger)
	}
	return publisher.NewStateStore(publisher.StateStoreOptions{
		BaseURL:   a.Config.Host.BaseURL,
		Token:     a.Config.Host.Token,
		Timeout:   a.Config.Host.RequestTimeout,
		UserAgent: a.Config.Host.UserAgent,
	}, a.Logger)
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		Name:          a.Config.Sensor.Name,
		SourceEntity:  a.Config.Host.SourceEntity,
		PriceEntity:   a.Config.Host.PriceEntity,
		LevelEntity:   a.Config.Host.LevelEntity,
		Rules:         a.Config.Rules(),
		Location:      a.Config.Location(),
		LockKey:       a.Config.Watcher.AdvisoryLockKey,
		RetentionDays: a.Config.Database.RetentionDays,
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	if err := storage.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running watch and publish service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var dayStore storage.PriceDayStore
	if store != nil {
		dayStore = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}

	w := watcher.New(watcher.Options{
		Interval:     a.Config.Watcher.Interval,
		AlignToStart: a.Config.Watcher.AlignToBucket,
		StartupDelay: a.Config.Watcher.StartupDelay,
		Immediate:    a.Config.Watcher.RunOnStart,
		Location:     a.Config.Location(),
	}, a.Logger)

	svc := service.New(a.serviceOptions(), w, a.newFetcher(), a.newPublisher(), dayStore, a.Logger)

	a.Logger.Info().
		Str("source_entity", a.Config.Host.SourceEntity).
		Dur("interval", a.Config.Watcher.Interval).
		Msg("starting price service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("price service stopped")
	return nil
}

// ComputeOptions configure an offline computation.
type ComputeOptions struct {
	SourcePath string
	// At is the instant the current hour is taken from. Zero means now.
	At      time.Time
	Publish bool
}

// ExportOptions select the stored day to export.
type ExportOptions struct {
	Day     time.Time
	PNGPath string
	CSVPath string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// RecomputeOptions configure reclassification of stored days.
type RecomputeOptions struct {
	Limit  int
	DryRun bool
}
