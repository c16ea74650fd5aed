/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/telemetry"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// State is the lifecycle of a SimpleMatch result.
type State int

const (
	// StateInvalid has no cached result and no query in flight.
	StateInvalid State = iota
	// StateQuerying has a query in flight; its partial result is not usable.
	StateQuerying
	// StateValid has a finalized result.
	StateValid
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "invalid"
	case StateQuerying:
		return "querying"
	case StateValid:
		return "valid"
	}
	return "unknown"
}

// Planner builds the collection query for a bias. now is the dispatch time.
type Planner func(now time.Time) query.Plan

// SimpleMatch evaluates a bias that accepts exactly the tracks returned by one
// collection query, or every other track when inverted.
//
// A single mutex serializes result merges with reads, so a merge never runs
// concurrently with MatchingTracks or TrackMatches. Each dispatch bumps a
// generation counter and results tagged with an older generation are dropped.
type SimpleMatch struct {
	owner   Bias
	maker   query.Maker
	planner Planner
	now     func() time.Time
	logger  zerolog.Logger

	mu        sync.Mutex
	invert    bool
	state     State
	set       trackset.Set
	universe  *trackset.Universe
	gen       uint64
	cancel    context.CancelFunc
	started   time.Time
	observers map[int]Observer
	nextObs   int
}

// NewSimpleMatch creates an evaluator. owner is the bias reported to
// observers.
func NewSimpleMatch(owner Bias, env Env, planner Planner) *SimpleMatch {
	return &SimpleMatch{
		owner:     owner,
		maker:     env.Maker,
		planner:   planner,
		now:       env.now,
		logger:    env.Logger.With().Str("component", "bias").Str("bias", owner.Name()).Logger(),
		observers: make(map[int]Observer),
	}
}

// State returns the current lifecycle state.
func (m *SimpleMatch) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Invert reports whether the match is inverted.
func (m *SimpleMatch) Invert() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invert
}

// SetInvert changes the inversion. A change invalidates the cached result and
// notifies observers.
func (m *SimpleMatch) SetInvert(v bool) {
	m.mu.Lock()
	if m.invert == v {
		m.mu.Unlock()
		return
	}
	m.invert = v
	m.invalidateLocked("invert")
	m.mu.Unlock()

	m.notifyChanged()
}

// setInvertQuiet changes the inversion without notifying; the caller
// invalidates and notifies.
func (m *SimpleMatch) setInvertQuiet(v bool) {
	m.mu.Lock()
	m.invert = v
	m.mu.Unlock()
}

// MatchingTracks returns a snapshot of the finalized result for universe. If
// there is none, a query is dispatched (unless one is running already) and an
// outstanding set is returned.
func (m *SimpleMatch) MatchingTracks(universe *trackset.Universe) trackset.Set {
	m.mu.Lock()
	if m.state != StateInvalid && m.universe != universe {
		m.invalidateLocked("universe")
	}

	switch m.state {
	case StateValid:
		snapshot := m.set.Clone()
		m.mu.Unlock()
		return snapshot
	case StateQuerying:
		m.mu.Unlock()
		return trackset.Set{}
	}

	ctx, run := m.dispatchLocked(universe)
	m.mu.Unlock()

	run(ctx)
	return trackset.Set{}
}

// dispatchLocked seeds the accumulating set and prepares a run of the plan.
// The returned func must be called without holding the lock, since a maker may
// deliver results synchronously.
func (m *SimpleMatch) dispatchLocked(universe *trackset.Universe) (context.Context, func(context.Context)) {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.universe = universe
	m.set = trackset.New(universe, m.invert)
	m.state = StateQuerying
	m.started = time.Now()

	plan := m.planner(m.now())
	sink := &generationSink{m: m, gen: gen}

	telemetry.BiasQueriesTotal.WithLabelValues(m.owner.Name()).Inc()
	m.logger.Debug().
		Uint64("generation", gen).
		Int("universe", universe.Size()).
		Str("plan", plan.String()).
		Msg("dispatching bias query")

	maker := m.maker
	return ctx, func(ctx context.Context) {
		if maker == nil {
			sink.Done(nil)
			return
		}
		maker.Run(ctx, plan, sink)
	}
}

// TrackMatches reports membership of uid in the finalized result. Until the
// result is final the answer is optimistically true.
func (m *SimpleMatch) TrackMatches(uid string) bool {
	member, final := m.Lookup(uid)
	return member || !final
}

// Lookup reports membership of uid and whether the answer is final.
func (m *SimpleMatch) Lookup(uid string) (member, final bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateValid {
		return false, false
	}
	return m.set.Contains(uid), true
}

// Valid reports whether a finalized result is cached.
func (m *SimpleMatch) Valid() bool {
	return m.State() == StateValid
}

// Invalidate discards the cached result and cancels any query in flight.
func (m *SimpleMatch) Invalidate() {
	m.mu.Lock()
	m.invalidateLocked("external")
	m.mu.Unlock()
}

// invalidate is used by owners that change the query itself.
func (m *SimpleMatch) invalidate(reason string) {
	m.mu.Lock()
	m.invalidateLocked(reason)
	m.mu.Unlock()
}

func (m *SimpleMatch) invalidateLocked(reason string) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.state == StateInvalid {
		return
	}
	// Results already in flight carry the old generation and are dropped.
	m.gen++
	m.state = StateInvalid
	m.set = trackset.Set{}
	m.universe = nil

	telemetry.BiasInvalidationsTotal.WithLabelValues(m.owner.Name(), reason).Inc()
	m.logger.Debug().Str("reason", reason).Msg("bias invalidated")
}

// AddObserver registers o and returns a func removing it.
func (m *SimpleMatch) AddObserver(o Observer) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = o
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *SimpleMatch) merge(gen uint64, uids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateQuerying {
		telemetry.BiasStaleResultsTotal.WithLabelValues(m.owner.Name(), "batch").Inc()
		m.logger.Debug().Uint64("generation", gen).Int("uids", len(uids)).Msg("dropping stale result batch")
		return
	}

	if m.invert {
		m.set.Subtract(uids)
	} else {
		m.set.Unite(uids)
	}
}

func (m *SimpleMatch) finish(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateQuerying {
		m.mu.Unlock()
		telemetry.BiasStaleResultsTotal.WithLabelValues(m.owner.Name(), "done").Inc()
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
		m.logger.Warn().Err(err).Msg("bias query failed, treating as no results")
		m.set = trackset.New(m.universe, m.invert)
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = StateValid
	telemetry.BiasQueryDuration.WithLabelValues(m.owner.Name(), status).Observe(time.Since(m.started).Seconds())

	snapshot := m.set.Clone()
	observers := m.observerList()
	m.mu.Unlock()

	m.logger.Debug().Int("tracks", countOf(snapshot)).Msg("bias result ready")
	for _, o := range observers {
		o.ResultReady(m.owner, snapshot)
	}
}

func (m *SimpleMatch) notifyChanged() {
	m.mu.Lock()
	observers := m.observerList()
	m.mu.Unlock()

	for _, o := range observers {
		o.Changed(m.owner)
	}
}

func (m *SimpleMatch) observerList() []Observer {
	out := make([]Observer, 0, len(m.observers))
	for i := 0; i < m.nextObs; i++ {
		if o, ok := m.observers[i]; ok {
			out = append(out, o)
		}
	}
	return out
}

func countOf(s trackset.Set) int {
	if s.IsUniverse() {
		return s.Universe().Size()
	}
	return s.Count()
}

// generationSink binds query results to the dispatch that produced them.
type generationSink struct {
	m   *SimpleMatch
	gen uint64
}

func (s *generationSink) ResultReady(_ string, uids []string) {
	if len(uids) == 0 {
		return
	}
	s.m.merge(s.gen, uids)
}

func (s *generationSink) Done(err error) {
	s.m.finish(s.gen, err)
}
