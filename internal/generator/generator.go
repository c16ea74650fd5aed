/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package generator builds playlists from a set of biases.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/telemetry"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// ErrUnresolved indicates the biases left no candidate track.
var ErrUnresolved = errors.New("biases could not produce a playlist")

// ErrNotReady indicates a strict request whose biases had not all finished
// evaluating by the deadline.
var ErrNotReady = errors.New("biases not ready")

// DefaultCount is the playlist length used when a request names none.
const DefaultCount = 20

// Generator picks tracks that satisfy every bias of a request.
type Generator struct {
	source Source
	wait   time.Duration
	logger zerolog.Logger
}

// New creates a generator. wait bounds how long Generate waits for biases to
// finish evaluating when the request does not say.
func New(source Source, wait time.Duration, logger zerolog.Logger) *Generator {
	return &Generator{
		source: source,
		wait:   wait,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// Request describes one generation pass.
type Request struct {
	Biases []dynamic.Bias
	Count  int
	Seed   int64
	// Wait overrides the generator's default wait when positive.
	Wait time.Duration
	// Strict fails with ErrNotReady instead of checking pending biases
	// track by track.
	Strict bool
}

// Result is a generated playlist.
type Result struct {
	UIDs       []string
	Candidates int
	Pending    []string
	Exhausted  bool
	Warnings   []string
}

// Generate evaluates the biases, waits for their results up to the deadline,
// and picks Count tracks with a seeded random order. Biases still pending at
// the deadline are applied per candidate through TrackMatches.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}
	wait := g.wait
	if req.Wait > 0 {
		wait = req.Wait
	}

	universe, err := g.source.Universe(ctx)
	if err != nil {
		telemetry.GeneratorRunsTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("load universe: %w", err)
	}

	sets, pending := Await(ctx, universe, req.Biases, wait)
	telemetry.GeneratorPendingBiases.Observe(float64(len(pending)))

	var result Result
	for _, b := range pending {
		desc := b.String()
		result.Pending = append(result.Pending, desc)
		result.Warnings = append(result.Warnings, "bias_pending:"+desc)
	}
	if req.Strict && len(pending) > 0 {
		telemetry.GeneratorRunsTotal.WithLabelValues("not_ready").Inc()
		return result, ErrNotReady
	}

	combined := trackset.MakeUniverse(universe)
	for _, s := range sets {
		combined.Intersect(s)
	}

	candidates := combined.UIDs()
	if len(pending) > 0 {
		candidates = g.filterPending(ctx, candidates, pending)
	}
	result.Candidates = len(candidates)

	if len(candidates) == 0 {
		telemetry.GeneratorRunsTotal.WithLabelValues("unresolved").Inc()
		return result, ErrUnresolved
	}

	rng := rand.New(rand.NewSource(req.Seed))
	result.UIDs = pick(rng, candidates, count)
	if len(result.UIDs) < count {
		result.Exhausted = true
		result.Warnings = append(result.Warnings, "underfilled_count")
	}

	telemetry.GeneratorRunsTotal.WithLabelValues("ok").Inc()
	g.logger.Debug().
		Int("biases", len(req.Biases)).
		Int("pending", len(pending)).
		Int("candidates", len(candidates)).
		Int("picked", len(result.UIDs)).
		Msg("playlist generated")
	return result, nil
}

func (g *Generator) filterPending(ctx context.Context, uids []string, pending []dynamic.Bias) []string {
	kept := uids[:0:0]
	for _, uid := range uids {
		track, err := g.source.Track(ctx, uid)
		if err != nil {
			g.logger.Debug().Err(err).Str("uid", uid).Msg("candidate lookup failed")
			continue
		}
		ok := true
		for _, b := range pending {
			if !b.TrackMatches(track) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, uid)
		}
	}
	return kept
}

// pick draws up to n distinct uids in a seeded random order.
func pick(rng *rand.Rand, uids []string, n int) []string {
	pool := append([]string(nil), uids...)
	n = min(n, len(pool))
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
