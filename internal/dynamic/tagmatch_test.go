/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/collection/memory"
	"github.com/friendsincode/dynbias/internal/filter"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/trackset"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func TestBuildPlanBetweenBounds(t *testing.T) {
	for _, f := range []filter.Filter{
		{Field: meta.Year, Condition: filter.Between, NumValue: 10, NumValue2: 5},
		{Field: meta.Year, Condition: filter.Between, NumValue: 5, NumValue2: 10},
	} {
		plan := BuildPlan(f, fixedNow)
		and, ok := plan.Root.(query.And)
		require.True(t, ok, "between builds a conjunction")
		require.Len(t, and, 2)
		assert.Equal(t, query.NumberFilter{Field: meta.Year, Value: 4, Compare: query.GreaterThan}, and[0])
		assert.Equal(t, query.NumberFilter{Field: meta.Year, Value: 11, Compare: query.LessThan}, and[1])
	}
}

func TestBetweenAtInt64Limits(t *testing.T) {
	coll := memory.New(memory.Config{}, zerolog.Nop())
	coll.Replace([]meta.Track{
		meta.NewTrack("zero").Set(meta.Filesize, meta.Int64(0)),
		meta.NewTrack("max").Set(meta.Filesize, meta.Int64(math.MaxInt64)),
		meta.NewTrack("min").Set(meta.Filesize, meta.Int64(math.MinInt64)),
	})

	tests := []struct {
		name   string
		lo, hi int64
		want   []string
		nodes  int
	}{
		{"zero to max", 0, math.MaxInt64, []string{"max", "zero"}, 1},
		{"min to zero", math.MinInt64, 0, []string{"min", "zero"}, 1},
		{"whole range", math.MinInt64, math.MaxInt64, []string{"max", "min", "zero"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := filter.Filter{Field: meta.Filesize, Condition: filter.Between, NumValue: tt.lo, NumValue2: tt.hi}
			plan := BuildPlan(f, fixedNow)
			assert.Len(t, plan.Root, tt.nodes)

			b := newTestTagMatch(coll, f)
			set := waitResult(t, b, coll.Universe())
			assert.ElementsMatch(t, tt.want, set.UIDs())
			for _, track := range []meta.Track{
				meta.NewTrack("zero").Set(meta.Filesize, meta.Int64(0)),
				meta.NewTrack("max").Set(meta.Filesize, meta.Int64(math.MaxInt64)),
			} {
				assert.Equal(t, set.Contains(track.UID()), b.Matches(track), track.UID())
			}
		})
	}
}

func TestBuildPlan(t *testing.T) {
	tests := []struct {
		name         string
		filter       filter.Filter
		want         query.Node
		timeRelative bool
	}{
		{
			name:   "equals numeric",
			filter: filter.Filter{Field: meta.Year, Condition: filter.Equals, NumValue: 1999},
			want:   query.NumberFilter{Field: meta.Year, Value: 1999, Compare: query.Equals},
		},
		{
			name:   "equals text",
			filter: filter.Filter{Field: meta.Artist, Condition: filter.Equals, Value: "Beatles"},
			want:   query.TextFilter{Field: meta.Artist, Value: "Beatles", Exact: true},
		},
		{
			name:   "greater",
			filter: filter.Filter{Field: meta.Rating, Condition: filter.GreaterThan, NumValue: 5},
			want:   query.NumberFilter{Field: meta.Rating, Value: 5, Compare: query.GreaterThan},
		},
		{
			name:   "less",
			filter: filter.Filter{Field: meta.Rating, Condition: filter.LessThan, NumValue: 5},
			want:   query.NumberFilter{Field: meta.Rating, Value: 5, Compare: query.LessThan},
		},
		{
			name:         "older than resolves against now",
			filter:       filter.Filter{Field: meta.LastPlayed, Condition: filter.OlderThan, NumValue: 3600},
			want:         query.NumberFilter{Field: meta.LastPlayed, Value: fixedNow.Unix() - 3600, Compare: query.LessThan},
			timeRelative: true,
		},
		{
			name:   "contains on field",
			filter: filter.Filter{Field: meta.Album, Condition: filter.Contains, Value: "abbey"},
			want:   query.TextFilter{Field: meta.Album, Value: "abbey"},
		},
		{
			name:   "contains any text fans out",
			filter: filter.Filter{Field: meta.AnyText, Condition: filter.Contains, Value: "x"},
			want: query.Or{
				query.TextFilter{Field: meta.Artist, Value: "x"},
				query.TextFilter{Field: meta.Title, Value: "x"},
				query.TextFilter{Field: meta.Album, Value: "x"},
				query.TextFilter{Field: meta.Genre, Value: "x"},
				query.TextFilter{Field: meta.URL, Value: "x"},
				query.TextFilter{Field: meta.Comment, Value: "x"},
				query.TextFilter{Field: meta.Label, Value: "x"},
			},
		},
		{
			name:   "numeric condition on text field",
			filter: filter.Filter{Field: meta.Artist, Condition: filter.GreaterThan, NumValue: 1},
			want:   query.Nothing{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := BuildPlan(tt.filter, fixedNow)
			assert.Equal(t, tt.want, plan.Root)
			assert.Equal(t, meta.UniqueID, plan.Returns)
			assert.Equal(t, tt.timeRelative, plan.TimeRelative)
		})
	}
}

func TestPlanUsesDispatchTime(t *testing.T) {
	maker := &captureMaker{}
	now := fixedNow
	b := NewTagMatch(Env{Maker: maker, Logger: zerolog.Nop(), Now: func() time.Time { return now }})
	b.SetFilter(filter.Filter{Field: meta.LastPlayed, Condition: filter.OlderThan, NumValue: 60})
	u := trackset.NewUniverse([]string{"t1"})

	b.MatchingTracks(u)
	first := maker.run(t, 0).plan

	now = now.Add(time.Hour)
	b.Invalidate()
	b.MatchingTracks(u)
	second := maker.run(t, 1).plan

	assert.NotEqual(t, first.Key(), second.Key())
	assert.False(t, second.Cacheable())
}

func TestEqualsBoundaries(t *testing.T) {
	b := newTestTagMatch(nil, filter.Filter{})
	track := meta.NewTrack("t").Set(meta.Year, meta.Int64(2000))

	tests := []struct {
		cond filter.Condition
		num  int64
		want bool
	}{
		{filter.Equals, 2000, true},
		{filter.Equals, 1999, false},
		{filter.Equals, 2001, false},
		{filter.GreaterThan, 2000, false},
		{filter.GreaterThan, 1999, true},
		{filter.LessThan, 2000, false},
		{filter.LessThan, 2001, true},
	}
	for _, tt := range tests {
		b.SetFilter(filter.Filter{Field: meta.Year, Condition: tt.cond, NumValue: tt.num})
		assert.Equal(t, tt.want, b.Matches(track), "%s %d", tt.cond, tt.num)
	}

	b.SetFilter(filter.Filter{Field: meta.Year, Condition: filter.Between, NumValue: 2000, NumValue2: 2000})
	assert.True(t, b.Matches(track), "between includes its operands")
}

func TestMatchesInvertAndInvalidFilter(t *testing.T) {
	b := newTestTagMatch(nil, filter.Filter{})
	track := meta.NewTrack("t").Set(meta.Artist, meta.Text("Beatles"))

	b.SetFilter(filter.Filter{Field: meta.Artist, Condition: filter.Contains, Value: "BEAT", Invert: true})
	assert.False(t, b.Matches(track))

	b.SetFilter(filter.Filter{Field: meta.AnyText, Condition: filter.Contains, Value: "eatl"})
	assert.True(t, b.Matches(track))

	b.SetFilter(filter.Filter{Field: meta.Artist, Condition: filter.LessThan, NumValue: 3})
	assert.False(t, b.Matches(track))
}

func TestTrackMatchesFallsBackToDirectMatch(t *testing.T) {
	maker := &captureMaker{}
	b := newTestTagMatch(maker, artistBeat)
	beatles := meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles"))
	stones := meta.NewTrack("t2").Set(meta.Artist, meta.Text("Stones"))

	assert.True(t, b.TrackMatches(beatles))
	assert.False(t, b.TrackMatches(stones))
	assert.True(t, b.TrackMatches(nil))

	// Once final, membership wins over the direct path.
	b.MatchingTracks(trackset.NewUniverse([]string{"t1", "t2"}))
	maker.run(t, 0).sink.Done(nil)
	assert.False(t, b.TrackMatches(beatles))
}

func TestString(t *testing.T) {
	b := newTestTagMatch(nil, artistBeat)
	assert.Equal(t, `Artist contains "beat"`, b.String())

	b.SetInvert(true)
	assert.Equal(t, `Not Artist contains "beat"`, b.String())
}

func waitResult(t *testing.T, b Bias, u *trackset.Universe) trackset.Set {
	t.Helper()
	ready := make(chan trackset.Set, 1)
	remove := b.AddObserver(ObserverFuncs{OnResult: func(_ Bias, set trackset.Set) { ready <- set }})
	defer remove()

	if set := b.MatchingTracks(u); !set.IsOutstanding() {
		return set
	}
	select {
	case set := <-ready:
		return set
	case <-time.After(2 * time.Second):
		t.Fatal("bias never became ready")
	}
	return trackset.Set{}
}

func TestBeatlesStonesScenario(t *testing.T) {
	coll := memory.New(memory.Config{}, zerolog.Nop())
	coll.Replace([]meta.Track{
		meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles")),
		meta.NewTrack("t2").Set(meta.Artist, meta.Text("Stones")),
	})

	b := newTestTagMatch(coll, artistBeat)
	set := waitResult(t, b, coll.Universe())
	assert.Equal(t, []string{"t1"}, set.UIDs())

	inverted := artistBeat
	inverted.Invert = true
	b.SetFilter(inverted)
	set = waitResult(t, b, coll.Universe())
	assert.Equal(t, []string{"t2"}, set.UIDs())
}

var numericFields = []meta.Field{meta.Year, meta.Rating, meta.PlayCount, meta.LastPlayed, meta.BPM}
var textFields = []meta.Field{meta.Artist, meta.Title, meta.Genre, meta.AnyText}
var words = []string{"Beatles", "beat", "STONES", "live", "", "a", "Rock"}

func randomTuple(rng *rand.Rand) (filter.Filter, meta.Track) {
	track := meta.NewTrack("only")
	var f filter.Filter

	if rng.Intn(2) == 0 {
		field := numericFields[rng.Intn(len(numericFields))]
		v := int64(rng.Intn(20))
		if field == meta.LastPlayed {
			v = fixedNow.Unix() - int64(rng.Intn(20))
		}
		track.Set(field, meta.Int64(v))

		conds := []filter.Condition{filter.Equals, filter.GreaterThan, filter.LessThan, filter.Between, filter.OlderThan, filter.Contains}
		f = filter.Filter{
			Field:     field,
			Condition: conds[rng.Intn(len(conds))],
			NumValue:  int64(rng.Intn(20)),
			NumValue2: int64(rng.Intn(20)),
			Value:     fmt.Sprint(rng.Intn(20)),
		}
	} else {
		field := textFields[rng.Intn(len(textFields))]
		stored := field
		if field == meta.AnyText {
			stored = meta.TextSearchFields[rng.Intn(len(meta.TextSearchFields))]
		}
		track.Set(stored, meta.Text(words[rng.Intn(len(words))]))

		conds := []filter.Condition{filter.Equals, filter.Contains}
		f = filter.Filter{
			Field:     field,
			Condition: conds[rng.Intn(len(conds))],
			Value:     words[rng.Intn(len(words))],
		}
	}
	f.Invert = rng.Intn(4) == 0
	return f, track
}

func TestDirectMatchAgreesWithQueryPlan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	clock := func() time.Time { return fixedNow }

	for i := 0; i < 100; i++ {
		f, track := randomTuple(rng)

		coll := memory.New(memory.Config{}, zerolog.Nop())
		coll.Replace([]meta.Track{track})

		b := NewTagMatch(Env{Maker: coll, Logger: zerolog.Nop(), Now: clock})
		b.SetFilter(f)

		direct := b.Matches(track)
		set := waitResult(t, b, coll.Universe())
		assert.Equal(t, direct, set.Contains(track.UID()), "tuple %d: filter %+v", i, f)
	}
}
