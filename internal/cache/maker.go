/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/telemetry"
)

// ResultStore keeps finished query results. *Cache implements it.
type ResultStore interface {
	GetResult(ctx context.Context, collectionID, planKey string) ([]string, bool)
	SetResult(ctx context.Context, collectionID, planKey string, uids []string) error
	InvalidateCollection(ctx context.Context, collectionID string) error
}

var _ ResultStore = (*Cache)(nil)

// Maker serves cacheable plans from a ResultStore and records the results
// of runs it forwards to the wrapped maker. Time relative plans always go to
// the wrapped maker.
//
// Every Invalidate starts a new epoch. A run only stores its result if no
// invalidation happened since it started.
type Maker struct {
	next         query.Maker
	store        ResultStore
	collectionID string
	logger       zerolog.Logger

	mu    sync.RWMutex
	epoch uint64
}

var _ query.Maker = (*Maker)(nil)

// NewMaker wraps next. collectionID namespaces the stored results and is
// reported with batches served from the store.
func NewMaker(next query.Maker, store ResultStore, collectionID string, logger zerolog.Logger) *Maker {
	return &Maker{
		next:         next,
		store:        store,
		collectionID: collectionID,
		logger:       logger.With().Str("component", "result_cache").Logger(),
	}
}

// Run implements query.Maker.
func (m *Maker) Run(ctx context.Context, plan query.Plan, sink query.Sink) {
	if !plan.Cacheable() {
		telemetry.ResultCacheTotal.WithLabelValues("bypass").Inc()
		m.next.Run(ctx, plan, sink)
		return
	}

	m.mu.RLock()
	epoch := m.epoch
	m.mu.RUnlock()

	go func() {
		key := plan.Key()
		if uids, ok := m.store.GetResult(ctx, m.collectionID, key); ok {
			telemetry.ResultCacheTotal.WithLabelValues("hit").Inc()
			if len(uids) > 0 && ctx.Err() == nil {
				sink.ResultReady(m.collectionID, uids)
			}
			sink.Done(ctx.Err())
			return
		}

		telemetry.ResultCacheTotal.WithLabelValues("miss").Inc()
		m.next.Run(ctx, plan, &teeSink{ctx: ctx, maker: m, key: key, epoch: epoch, next: sink})
	}()
}

// Invalidate drops the collection's stored results and starts a new epoch.
// It returns once the store is cleared, so a caller may re-query right away.
func (m *Maker) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	if err := m.store.InvalidateCollection(context.Background(), m.collectionID); err != nil {
		m.logger.Warn().Err(err).Str("collection", m.collectionID).Msg("failed to invalidate cached results")
	}
}

// save records uids unless the epoch moved on since the run started.
func (m *Maker) save(ctx context.Context, epoch uint64, key string, uids []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if epoch != m.epoch {
		telemetry.ResultCacheTotal.WithLabelValues("stale").Inc()
		return
	}
	if err := m.store.SetResult(ctx, m.collectionID, key, uids); err != nil {
		telemetry.ResultCacheTotal.WithLabelValues("store_error").Inc()
		m.logger.Debug().Err(err).Msg("failed to store query result")
	}
}

// teeSink forwards a run to the caller and stores the complete result once
// it finished without error.
type teeSink struct {
	ctx   context.Context
	maker *Maker
	key   string
	epoch uint64
	next  query.Sink

	mu   sync.Mutex
	uids []string
}

func (t *teeSink) ResultReady(collectionID string, uids []string) {
	t.mu.Lock()
	t.uids = append(t.uids, uids...)
	t.mu.Unlock()
	t.next.ResultReady(collectionID, uids)
}

func (t *teeSink) Done(err error) {
	if err == nil && t.ctx.Err() == nil {
		t.mu.Lock()
		uids := append([]string(nil), t.uids...)
		t.mu.Unlock()

		if uids == nil {
			uids = []string{}
		}
		t.maker.save(context.WithoutCancel(t.ctx), t.epoch, t.key, uids)
	}
	t.next.Done(err)
}
