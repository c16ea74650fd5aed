/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package memory is an in-process collection that evaluates query plans
// against tracks held in memory.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/telemetry"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// Config tunes a memory collection.
type Config struct {
	ID        string
	BatchSize int
	Workers   int
	// Broker, if set, receives collection.updated on Replace.
	Broker events.Broker
}

// Collection holds tracks and answers plans by scanning them in partitions
// of BatchSize, one result batch per partition with matches.
type Collection struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.RWMutex
	tracks   []meta.Track
	byUID    map[string]meta.Track
	universe *trackset.Universe
}

var _ query.Maker = (*Collection)(nil)

// New creates an empty collection.
func New(cfg Config, logger zerolog.Logger) *Collection {
	if cfg.ID == "" {
		cfg.ID = "memory"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	c := &Collection{
		cfg:    cfg,
		logger: logger.With().Str("component", "memory_collection").Logger(),
	}
	c.Replace(nil)
	return c
}

// ID returns the collection id reported with result batches.
func (c *Collection) ID() string { return c.cfg.ID }

// Replace swaps the collection contents. Tracks with an empty or repeated
// uid are dropped.
func (c *Collection) Replace(tracks []meta.Track) {
	kept := make([]meta.Track, 0, len(tracks))
	byUID := make(map[string]meta.Track, len(tracks))
	uids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uid := t.UID()
		if uid == "" {
			continue
		}
		if _, dup := byUID[uid]; dup {
			continue
		}
		byUID[uid] = t
		kept = append(kept, t)
		uids = append(uids, uid)
	}

	c.mu.Lock()
	c.tracks = kept
	c.byUID = byUID
	c.universe = trackset.NewUniverse(uids)
	c.mu.Unlock()

	c.logger.Debug().Int("tracks", len(kept)).Msg("collection replaced")
	if c.cfg.Broker != nil {
		c.cfg.Broker.Publish(events.EventCollectionUpdated, events.Payload{
			"collection": c.cfg.ID,
			"tracks":     len(kept),
		})
	}
}

// Universe returns the current universe. It is replaced, not mutated, by
// Replace.
func (c *Collection) Universe() *trackset.Universe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.universe
}

// Track returns the track with the given uid.
func (c *Collection) Track(uid string) (meta.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byUID[uid]
	return t, ok
}

// Run implements query.Maker.
func (c *Collection) Run(ctx context.Context, plan query.Plan, sink query.Sink) {
	c.mu.RLock()
	tracks := c.tracks
	c.mu.RUnlock()

	go func() {
		err := c.scan(ctx, plan, tracks, sink)
		if err != nil {
			telemetry.CollectionQueryErrorsTotal.WithLabelValues(c.cfg.ID).Inc()
		}
		sink.Done(err)
	}()
}

func (c *Collection) scan(ctx context.Context, plan query.Plan, tracks []meta.Track, sink query.Sink) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for lo := 0; lo < len(tracks); lo += c.cfg.BatchSize {
		part := tracks[lo:min(lo+c.cfg.BatchSize, len(tracks))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var uids []string
			for _, t := range part {
				if query.Match(plan.Root, t) {
					uids = append(uids, t.Value(plan.Returns).String())
				}
			}
			if len(uids) == 0 {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			telemetry.CollectionBatchesTotal.WithLabelValues(c.cfg.ID).Inc()
			sink.ResultReady(c.cfg.ID, uids)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
