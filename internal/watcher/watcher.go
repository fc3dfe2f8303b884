package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every aligned interval.
type TickFunc func(ctx context.Context, bucket time.Time) error

// Options tune watcher behaviour.
type Options struct {
	Interval     time.Duration
	AlignToStart bool
	StartupDelay time.Duration
	// Immediate runs one tick right after the startup delay so the derived
	// entities are published without waiting a full interval.
	Immediate bool
	// Location is the zone buckets are reported in. Defaults to UTC.
	Location *time.Location
}

// Watcher polls the source entity on a fixed cadence.
type Watcher struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Watcher instance.
func New(opts Options, logger zerolog.Logger) *Watcher {
	if opts.Interval <= 0 {
		panic("watcher interval must be positive")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Watcher{
		opts:   opts,
		logger: logger.With().Str("component", "watcher").Logger(),
		now:    time.Now,
	}
}

// Run blocks, invoking tick at each aligned interval until ctx is cancelled.
// Tick errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, tick TickFunc) error {
	if w.opts.StartupDelay > 0 {
		timer := time.NewTimer(w.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if w.opts.Immediate {
		w.fire(ctx, tick, w.now())
	}

	next := w.nextTick(w.now())
	for {
		delay := next.Sub(w.now())
		if delay < 0 {
			next = w.nextTick(w.now())
			delay = next.Sub(w.now())
		}

		timer := time.NewTimer(delay)
		w.logger.Debug().Time("next_bucket", next).Msg("waiting for next poll")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		w.fire(ctx, tick, next)
		next = next.Add(w.opts.Interval)
	}
}

func (w *Watcher) fire(ctx context.Context, tick TickFunc, at time.Time) {
	bucket := w.bucketStart(at).In(w.opts.Location)
	w.logger.Debug().Time("bucket", bucket).Msg("polling source")

	if err := tick(ctx, bucket); err != nil {
		w.logger.Error().Err(err).Time("bucket", bucket).Msg("poll failed")
	}
}

func (w *Watcher) nextTick(now time.Time) time.Time {
	if !w.opts.AlignToStart {
		return now.Add(w.opts.Interval)
	}
	bucket := now.Truncate(w.opts.Interval)
	if !bucket.After(now) {
		bucket = bucket.Add(w.opts.Interval)
	}
	return bucket
}

func (w *Watcher) bucketStart(t time.Time) time.Time {
	if !w.opts.AlignToStart {
		return t
	}
	return t.Truncate(w.opts.Interval)
}
