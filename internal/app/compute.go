package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"power-price-level/internal/fetcher"
	"power-price-level/internal/publisher"
	"power-price-level/internal/sensor"
	"power-price-level/internal/service"
)

// Compute reads a saved source state, runs it through the pipeline and writes
// both entity states as YAML.
func (a *App) Compute(ctx context.Context, opts ComputeOptions, out io.Writer) error {
	if opts.SourcePath == "" {
		return fmt.Errorf("source file is required")
	}

	update, err := fetcher.FileSource{Path: opts.SourcePath}.FetchSource(ctx)
	if err != nil {
		return err
	}

	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}

	capture := &capturePublisher{}
	var pub publisher.Publisher = capture
	if opts.Publish {
		pub = teePublisher{capture, a.newPublisher()}
	}

	svcOpts := a.serviceOptions()
	svcOpts.Now = func() time.Time { return at }

	svc := service.New(svcOpts, nil, nil, pub, nil, a.Logger)
	if err := svc.OnUpstreamChanged(ctx, update); err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	for _, snapshot := range capture.snapshots {
		if err := enc.Encode(snapshot); err != nil {
			return fmt.Errorf("encode %s: %w", snapshot.EntityID, err)
		}
	}
	return enc.Close()
}

type capturePublisher struct {
	mu        sync.Mutex
	snapshots []sensor.Snapshot
}

func (c *capturePublisher) Publish(ctx context.Context, snapshot sensor.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, snapshot)
	return nil
}

type teePublisher []publisher.Publisher

func (t teePublisher) Publish(ctx context.Context, snapshot sensor.Snapshot) error {
	for _, p := range t {
		if err := p.Publish(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}
