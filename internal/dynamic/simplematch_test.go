/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/filter"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// captureMaker records every run so tests can deliver results by hand.
type captureMaker struct {
	mu   sync.Mutex
	runs []capturedRun
}

type capturedRun struct {
	ctx  context.Context
	plan query.Plan
	sink query.Sink
}

func (m *captureMaker) Run(ctx context.Context, plan query.Plan, sink query.Sink) {
	m.mu.Lock()
	m.runs = append(m.runs, capturedRun{ctx: ctx, plan: plan, sink: sink})
	m.mu.Unlock()
}

func (m *captureMaker) run(t *testing.T, i int) capturedRun {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Greater(t, len(m.runs), i, "run %d was never dispatched", i)
	return m.runs[i]
}

func (m *captureMaker) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

type resultLog struct {
	mu      sync.Mutex
	results []trackset.Set
	changed int
}

func (l *resultLog) ResultReady(_ Bias, set trackset.Set) {
	l.mu.Lock()
	l.results = append(l.results, set)
	l.mu.Unlock()
}

func (l *resultLog) Changed(Bias) {
	l.mu.Lock()
	l.changed++
	l.mu.Unlock()
}

func newTestTagMatch(maker query.Maker, f filter.Filter) *TagMatch {
	b := NewTagMatch(Env{Maker: maker, Registry: meta.NewRegistry(), Logger: zerolog.Nop()})
	b.SetFilter(f)
	return b
}

var artistBeat = filter.Filter{Field: meta.Artist, Condition: filter.Contains, Value: "beat"}

func TestStateMachine(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2", "t3"})
	log := &resultLog{}
	b.AddObserver(log)

	assert.Equal(t, StateInvalid, b.State())

	set := b.MatchingTracks(u)
	assert.True(t, set.IsOutstanding())
	assert.Equal(t, StateQuerying, b.State())
	require.Equal(t, 1, maker.count())

	// A second call while querying does not dispatch again.
	assert.True(t, b.MatchingTracks(u).IsOutstanding())
	assert.Equal(t, 1, maker.count())

	run := maker.run(t, 0)
	run.sink.ResultReady("c", []string{"t1"})
	assert.Equal(t, StateQuerying, b.State())
	assert.True(t, b.match.TrackMatches("t2"), "pending answers are optimistic")

	run.sink.ResultReady("c", []string{"t3", "t1"})
	run.sink.Done(nil)
	assert.Equal(t, StateValid, b.State())
	assert.Error(t, run.ctx.Err(), "finished run context is released")

	set = b.MatchingTracks(u)
	assert.Equal(t, []string{"t1", "t3"}, set.UIDs())
	assert.True(t, b.match.TrackMatches("t1"))
	assert.False(t, b.match.TrackMatches("t2"))

	require.Len(t, log.results, 1)
	assert.True(t, log.results[0].Equal(set))
}

func TestSnapshotsAreIndependent(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2"})

	b.MatchingTracks(u)
	run := maker.run(t, 0)
	run.sink.ResultReady("c", []string{"t1"})
	run.sink.Done(nil)

	snap := b.MatchingTracks(u)
	snap.Unite([]string{"t2"})

	assert.Equal(t, []string{"t1"}, b.MatchingTracks(u).UIDs())
}

func TestCancellationRace(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2", "t3"})

	b.MatchingTracks(u)
	a := maker.run(t, 0)

	b.Invalidate()
	assert.Error(t, a.ctx.Err(), "invalidation cancels the query in flight")

	b.MatchingTracks(u)
	next := maker.run(t, 1)

	// Late results from the first query must not leak into the second.
	a.sink.ResultReady("c", []string{"t2"})
	a.sink.Done(nil)
	assert.Equal(t, StateQuerying, b.State())

	next.sink.ResultReady("c", []string{"t1"})
	next.sink.Done(nil)

	assert.Equal(t, StateValid, b.State())
	assert.Equal(t, []string{"t1"}, b.MatchingTracks(u).UIDs())
}

func TestStaleResultAfterFilterChange(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2"})

	b.MatchingTracks(u)
	a := maker.run(t, 0)

	b.SetFilter(filter.Filter{Field: meta.Artist, Condition: filter.Contains, Value: "stones"})
	assert.Equal(t, StateInvalid, b.State())

	a.sink.ResultReady("c", []string{"t1"})
	a.sink.Done(nil)
	assert.Equal(t, StateInvalid, b.State(), "a stale completion does not finalize")
}

func TestInvertSubtracts(t *testing.T) {
	maker := &captureMaker{}
	f := artistBeat
	f.Invert = true
	b := newTestTagMatch(maker, f)
	u := trackset.NewUniverse([]string{"t1", "t2", "t3"})

	b.MatchingTracks(u)
	run := maker.run(t, 0)
	run.sink.ResultReady("c", []string{"t1"})
	run.sink.Done(nil)

	assert.Equal(t, []string{"t2", "t3"}, b.MatchingTracks(u).UIDs())
}

func TestSetInvertInvalidates(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2"})
	log := &resultLog{}
	b.AddObserver(log)

	b.MatchingTracks(u)
	maker.run(t, 0).sink.Done(nil)
	require.Equal(t, StateValid, b.State())

	b.SetInvert(false)
	assert.Equal(t, StateValid, b.State(), "unchanged flag is a no-op")
	assert.Equal(t, 0, log.changed)

	b.SetInvert(true)
	assert.Equal(t, StateInvalid, b.State())
	assert.Equal(t, 1, log.changed)
	assert.True(t, b.Filter().Invert)
}

func TestQueryFailureYieldsNoResults(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1", "t2"})

	b.MatchingTracks(u)
	run := maker.run(t, 0)
	run.sink.ResultReady("c", []string{"t1"})
	run.sink.Done(errors.New("collection offline"))

	assert.Equal(t, StateValid, b.State())
	assert.True(t, b.MatchingTracks(u).IsEmpty())
	assert.False(t, b.TrackMatches(meta.NewTrack("t1")))
}

func TestDifferentUniverseRequeries(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u1 := trackset.NewUniverse([]string{"t1"})
	u2 := trackset.NewUniverse([]string{"t1", "t2"})

	b.MatchingTracks(u1)
	maker.run(t, 0).sink.Done(nil)
	require.Equal(t, StateValid, b.State())

	assert.True(t, b.MatchingTracks(u2).IsOutstanding())
	assert.Equal(t, 2, maker.count())
}

func TestObserverRemoval(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	log := &resultLog{}
	remove := b.AddObserver(log)
	remove()

	b.MatchingTracks(trackset.NewUniverse([]string{"t1"}))
	maker.run(t, 0).sink.Done(nil)
	assert.Empty(t, log.results)
}

func TestObserverMayCallBack(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	u := trackset.NewUniverse([]string{"t1"})

	got := make(chan trackset.Set, 1)
	b.AddObserver(ObserverFuncs{OnResult: func(bias Bias, _ trackset.Set) {
		got <- bias.MatchingTracks(u)
	}})

	b.MatchingTracks(u)
	maker.run(t, 0).sink.ResultReady("c", []string{"t1"})
	maker.run(t, 0).sink.Done(nil)

	select {
	case set := <-got:
		assert.Equal(t, []string{"t1"}, set.UIDs())
	case <-time.After(time.Second):
		t.Fatal("observer deadlocked")
	}
}

func TestNilMakerFinalizesImmediately(t *testing.T) {
	b := newTestTagMatch(nil, artistBeat)
	u := trackset.NewUniverse([]string{"t1"})

	b.MatchingTracks(u)
	assert.Equal(t, StateValid, b.State())
	assert.True(t, b.MatchingTracks(u).IsEmpty())
}
