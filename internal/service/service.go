package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/now"
	"github.com/rs/zerolog"

	"power-price-level/internal/fetcher"
	"power-price-level/internal/level"
	"power-price-level/internal/pricing"
	"power-price-level/internal/publisher"
	"power-price-level/internal/rules"
	"power-price-level/internal/sensor"
	"power-price-level/internal/storage"
	"power-price-level/internal/watcher"
)

// Options configure the price pipeline.
type Options struct {
	Name         string
	SourceEntity string
	PriceEntity  string
	LevelEntity  string
	Rules        rules.Config
	Location     *time.Location
	LockKey      int64
	// RetentionDays prunes stored days older than this. Zero keeps everything.
	RetentionDays int
	// Now overrides the wall clock.
	Now func() time.Time
}

// Service turns upstream spot price updates into the price and level entities.
type Service struct {
	opts      Options
	watcher   *watcher.Watcher
	source    fetcher.SourceFetcher
	publisher publisher.Publisher
	store     storage.PriceDayStore
	locker    storage.AdvisoryLocker
	logger    zerolog.Logger
	now       func() time.Time

	mu          sync.Mutex
	seen        bool
	available   bool
	lastUpdated time.Time
	hour        time.Time
	reason      string
	today       pricing.HourlyPrice
	tomorrow    pricing.HourlyPrice
}

// New constructs the pipeline service. store may be nil.
func New(opts Options, w *watcher.Watcher, source fetcher.SourceFetcher, pub publisher.Publisher, store storage.PriceDayStore, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		opts:      opts,
		watcher:   w,
		source:    source,
		publisher: pub,
		store:     store,
		locker:    locker,
		logger:    logger.With().Str("component", "service").Logger(),
		now:       opts.Now,
	}
}

// Run begins the watch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.watcher == nil {
		return fmt.Errorf("watcher not configured")
	}
	return s.watcher.Run(ctx, s.Poll)
}

// Poll checks the source entity once. A changed source is pushed through
// OnUpstreamChanged; otherwise the entities are only refreshed when the local
// hour rolled over.
func (s *Service) Poll(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip poll because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	update, err := s.source.FetchSource(ctx)
	if err != nil {
		if refreshErr := s.RefreshHour(ctx); refreshErr != nil {
			s.logger.Error().Err(refreshErr).Msg("failed to refresh entities")
		}
		return fmt.Errorf("fetch source: %w", err)
	}

	if s.changed(update) {
		return s.OnUpstreamChanged(ctx, update)
	}
	return s.RefreshHour(ctx)
}

func (s *Service) changed(update fetcher.Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen || update.Available != s.available || update.LastUpdated.IsZero() {
		return true
	}
	return !update.LastUpdated.Equal(s.lastUpdated)
}

// OnUpstreamChanged rebuilds both days from the update and publishes the price
// entity followed by the level entity.
func (s *Service) OnUpstreamChanged(ctx context.Context, update fetcher.Update) error {
	s.mu.Lock()
	s.seen = true
	s.available = update.Available
	s.lastUpdated = update.LastUpdated

	if update.Available {
		tariff := pricing.TariffFromRules(s.opts.Rules)
		s.today = pricing.Build(update.Today, tariff)
		s.tomorrow = pricing.HourlyPrice{}
		if len(update.Tomorrow) > 0 {
			s.tomorrow = pricing.Build(update.Tomorrow, tariff)
		}
		s.reason = ""
	} else {
		s.today = pricing.HourlyPrice{}
		s.tomorrow = pricing.HourlyPrice{}
		s.reason = sensor.ReasonSourceUnavailable
	}
	today, tomorrow := s.today, s.tomorrow
	s.mu.Unlock()

	s.logger.Info().
		Str("source_entity", update.EntityID).
		Bool("available", update.Available).
		Time("last_updated", update.LastUpdated).
		Bool("tomorrow", tomorrow.Present()).
		Msg("source changed")

	if err := s.publish(ctx); err != nil {
		return err
	}

	if update.Available {
		s.persist(ctx, today, tomorrow)
	}
	return nil
}

// OnPricesChanged recomputes and publishes the level entity from the held
// price series.
func (s *Service) OnPricesChanged(ctx context.Context) error {
	current := s.localNow()
	snapshot := s.levelSnapshot(current)
	if err := s.publisher.Publish(ctx, snapshot); err != nil {
		return fmt.Errorf("publish level: %w", err)
	}
	return nil
}

// RefreshHour republishes both entities when the local hour changed since the
// last publish.
func (s *Service) RefreshHour(ctx context.Context) error {
	s.mu.Lock()
	stale := s.seen && !s.hour.Equal(now.With(s.localNow()).BeginningOfHour())
	s.mu.Unlock()

	if !stale {
		return nil
	}
	return s.publish(ctx)
}

// Prices returns the held series of today and tomorrow.
func (s *Service) Prices() (pricing.HourlyPrice, pricing.HourlyPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today, s.tomorrow
}

func (s *Service) publish(ctx context.Context) error {
	current := s.localNow()
	priceSnapshot := s.priceSnapshot(current)
	if err := s.publisher.Publish(ctx, priceSnapshot); err != nil {
		return fmt.Errorf("publish price: %w", err)
	}

	if err := s.OnPricesChanged(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.hour = now.With(current).BeginningOfHour()
	s.mu.Unlock()

	s.logger.Debug().
		Str("price", priceSnapshot.State).
		Int("hour", current.Hour()).
		Msg("entities published")
	return nil
}

func (s *Service) priceSnapshot(current time.Time) sensor.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sensor.NewPriceSnapshot(sensor.PriceInput{
		EntityID: s.opts.PriceEntity,
		Name:     s.opts.Name,
		Rules:    s.opts.Rules,
		Today:    s.today,
		Tomorrow: s.tomorrow,
		Now:      current,
	})
}

func (s *Service) levelSnapshot(current time.Time) sensor.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sensor.NewLevelSnapshot(sensor.LevelInput{
		EntityID:     s.opts.LevelEntity,
		Name:         s.opts.Name,
		SourceEntity: s.opts.PriceEntity,
		Rules:        s.opts.Rules,
		Today:        s.today,
		Tomorrow:     s.tomorrow,
		Hour:         current.Hour(),
		Reason:       s.reason,
	})
}

func (s *Service) persist(ctx context.Context, today, tomorrow pricing.HourlyPrice) {
	if s.store == nil {
		return
	}

	day := now.With(s.localNow()).BeginningOfDay()
	for i, series := range []pricing.HourlyPrice{today, tomorrow} {
		if !series.Present() {
			continue
		}
		date := day.AddDate(0, 0, i)
		record := storage.NewPriceDay(date, s.opts.SourceEntity, s.opts.Rules.Currency, series, level.ClassifyDay(series, s.opts.Rules))
		if err := s.store.UpsertPriceDay(ctx, record); err != nil {
			s.logger.Error().Err(err).Time("day", date).Msg("failed to upsert price day")
		}
	}

	if s.opts.RetentionDays > 0 {
		cutoff := day.AddDate(0, 0, -s.opts.RetentionDays)
		if err := s.store.DeleteDaysBefore(ctx, cutoff); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			s.logger.Error().Err(err).Time("cutoff", cutoff).Msg("failed to prune price days")
		}
	}
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.opts.Location)
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
