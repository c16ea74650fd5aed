/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sqlstore is a database-backed collection. Plans are translated
// into SQL and matching uids are streamed back in batches.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/models"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/telemetry"
	"github.com/friendsincode/dynbias/internal/trackset"
)

const tracerName = "dynbias/sqlstore"

// ErrTrackNotFound is returned by Track for an unknown uid.
var ErrTrackNotFound = errors.New("track not found")

// Config tunes a Store.
type Config struct {
	ID        string
	BatchSize int
	// Broker, if set, receives collection.updated after Import.
	Broker events.Broker
}

// Store is a collection of models.Track rows.
type Store struct {
	db     *gorm.DB
	cfg    Config
	where  whereBuilder
	logger zerolog.Logger

	mu       sync.Mutex
	universe *trackset.Universe
}

var _ query.Maker = (*Store)(nil)

// New creates a Store over db. The schema must already be migrated.
func New(db *gorm.DB, cfg Config, logger zerolog.Logger) *Store {
	if cfg.ID == "" {
		cfg.ID = "sql"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &Store{
		db:     db,
		cfg:    cfg,
		where:  whereBuilder{dialect: db.Dialector.Name()},
		logger: logger.With().Str("component", "sql_collection").Logger(),
	}
}

// ID returns the collection id reported with result batches.
func (s *Store) ID() string { return s.cfg.ID }

// Invalidate drops the loaded universe so the next Universe call reloads it.
// Call it when another instance changed the tracks.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.universe = nil
	s.mu.Unlock()
}

// Universe returns the universe of every stored uid. It is loaded once and
// replaced after each Import.
func (s *Store) Universe(ctx context.Context) (*trackset.Universe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.universe != nil {
		return s.universe, nil
	}

	var uids []string
	if err := s.db.WithContext(ctx).Model(&models.Track{}).Order("uid").Pluck("uid", &uids).Error; err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	s.universe = trackset.NewUniverse(uids)
	return s.universe, nil
}

// Track loads one track by uid.
func (s *Store) Track(ctx context.Context, uid string) (*models.Track, error) {
	var t models.Track
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Count returns the number of stored tracks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Track{}).Count(&n).Error
	return n, err
}

// Import upserts tracks by uid. Tracks without a uid are skipped.
func (s *Store) Import(ctx context.Context, tracks []meta.Track) (int, error) {
	rows := make([]*models.Track, 0, len(tracks))
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		uid := t.UID()
		if uid == "" {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		row := models.TrackFrom(t)
		row.ID = uuid.NewString()
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns(updatableColumns()),
	}).CreateInBatches(rows, s.cfg.BatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("import tracks: %w", err)
	}

	s.Invalidate()

	s.logger.Info().Int("tracks", len(rows)).Msg("tracks imported")
	if s.cfg.Broker != nil {
		s.cfg.Broker.Publish(events.EventCollectionUpdated, events.Payload{
			"collection": s.cfg.ID,
			"tracks":     len(rows),
		})
	}
	return len(rows), nil
}

func updatableColumns() []string {
	cols := make([]string, 0, 32)
	for _, f := range meta.NewRegistry().Fields() {
		if col, ok := models.TrackColumn(f); ok && f != meta.UniqueID {
			cols = append(cols, col)
		}
		if col, ok := models.FoldColumn(f); ok && f != meta.UniqueID {
			cols = append(cols, col)
		}
	}
	return append(cols, "updated_at")
}

// Run implements query.Maker.
func (s *Store) Run(ctx context.Context, plan query.Plan, sink query.Sink) {
	go func() {
		ctx, span := telemetry.StartSpan(ctx, tracerName, "sqlstore.Run",
			trace.WithAttributes(
				attribute.String("collection", s.cfg.ID),
				attribute.String("plan.key", plan.Key()),
			))
		err := s.run(ctx, plan, sink)
		telemetry.EndSpan(span, err)
		if err != nil {
			telemetry.CollectionQueryErrorsTotal.WithLabelValues(s.cfg.ID).Inc()
			s.logger.Debug().Err(err).Str("plan", plan.String()).Msg("query failed")
		}
		sink.Done(err)
	}()
}

func (s *Store) run(ctx context.Context, plan query.Plan, sink query.Sink) error {
	returns, err := column(plan.Returns)
	if err != nil {
		return err
	}
	where, err := s.where.build(plan.Root)
	if err != nil {
		return err
	}

	var rows []models.Track
	res := s.db.WithContext(ctx).
		Model(&models.Track{}).
		Select("id", returns).
		Where(where.sql, where.args...).
		FindInBatches(&rows, s.cfg.BatchSize, func(tx *gorm.DB, _ int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			uids := make([]string, len(rows))
			for i := range rows {
				uids[i] = rows[i].Value(plan.Returns).String()
			}
			if len(uids) > 0 {
				telemetry.CollectionBatchesTotal.WithLabelValues(s.cfg.ID).Inc()
				sink.ResultReady(s.cfg.ID, uids)
			}
			return nil
		})
	if res.Error != nil {
		return res.Error
	}
	return ctx.Err()
}
