/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package biasstore keeps named bias definitions in the database in their
// persisted XML form.
package biasstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/models"
)

var (
	// ErrNotFound is returned when no bias is saved under a name.
	ErrNotFound = errors.New("saved bias not found")
	// ErrInvalidName is returned for blank names.
	ErrInvalidName = errors.New("saved bias name is required")
)

// Store reads and writes saved biases.
type Store struct {
	db        *gorm.DB
	factories *dynamic.Factories
	broker    events.Broker
	logger    zerolog.Logger
}

// New creates a store. broker may be nil.
func New(db *gorm.DB, factories *dynamic.Factories, broker events.Broker, logger zerolog.Logger) *Store {
	if factories == nil {
		factories = dynamic.DefaultFactories()
	}
	return &Store{
		db:        db,
		factories: factories,
		broker:    broker,
		logger:    logger.With().Str("component", "biasstore").Logger(),
	}
}

// Save stores b under name, replacing any previous definition.
func (s *Store) Save(ctx context.Context, name, description string, b dynamic.Bias) (*models.SavedBias, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var buf bytes.Buffer
	if err := dynamic.WriteBias(&buf, b); err != nil {
		return nil, fmt.Errorf("encode bias: %w", err)
	}
	if description == "" {
		description = b.String()
	}

	row := models.SavedBias{
		ID:          uuid.NewString(),
		Name:        name,
		Type:        b.Name(),
		Description: description,
		Definition:  buf.String(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "description", "definition", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("save bias %q: %w", name, err)
	}

	saved, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("name", name).Str("type", saved.Type).Msg("bias saved")
	s.publish(name, "saved")
	return saved, nil
}

// Get returns the stored row for name.
func (s *Store) Get(ctx context.Context, name string) (*models.SavedBias, error) {
	var row models.SavedBias
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bias %q: %w", name, err)
	}
	return &row, nil
}

// Load decodes the bias saved under name, built with env.
func (s *Store) Load(ctx context.Context, name string, env dynamic.Env) (dynamic.Bias, error) {
	row, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	b, err := dynamic.ReadBias(strings.NewReader(row.Definition), s.factories, env)
	if err != nil {
		return nil, fmt.Errorf("decode bias %q: %w", name, err)
	}
	return b, nil
}

// List returns every saved bias ordered by name.
func (s *Store) List(ctx context.Context) ([]models.SavedBias, error) {
	var rows []models.SavedBias
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list biases: %w", err)
	}
	return rows, nil
}

// Delete removes the bias saved under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.SavedBias{})
	if res.Error != nil {
		return fmt.Errorf("delete bias %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.logger.Info().Str("name", name).Msg("bias deleted")
	s.publish(name, "deleted")
	return nil
}

func (s *Store) publish(name, action string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.EventBiasChanged, events.Payload{
		"bias":   name,
		"action": action,
	})
}
