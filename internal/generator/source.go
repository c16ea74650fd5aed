/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package generator

import (
	"context"
	"fmt"

	"github.com/friendsincode/dynbias/internal/collection/memory"
	"github.com/friendsincode/dynbias/internal/collection/sqlstore"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// Source supplies the candidate pool and single-track lookups.
type Source interface {
	Universe(ctx context.Context) (*trackset.Universe, error)
	Track(ctx context.Context, uid string) (meta.Track, error)
}

// MemorySource adapts a memory collection.
func MemorySource(c *memory.Collection) Source { return memorySource{c} }

type memorySource struct{ c *memory.Collection }

func (s memorySource) Universe(context.Context) (*trackset.Universe, error) {
	return s.c.Universe(), nil
}

func (s memorySource) Track(_ context.Context, uid string) (meta.Track, error) {
	t, ok := s.c.Track(uid)
	if !ok {
		return nil, fmt.Errorf("track %q not in collection", uid)
	}
	return t, nil
}

// SQLSource adapts a database collection.
func SQLSource(s *sqlstore.Store) Source { return sqlSource{s} }

type sqlSource struct{ s *sqlstore.Store }

func (s sqlSource) Universe(ctx context.Context) (*trackset.Universe, error) {
	return s.s.Universe(ctx)
}

func (s sqlSource) Track(ctx context.Context, uid string) (meta.Track, error) {
	t, err := s.s.Track(ctx, uid)
	if err != nil {
		return nil, err
	}
	return t, nil
}
