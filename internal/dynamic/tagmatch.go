/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"encoding/xml"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/dynbias/internal/filter"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// TagMatchName is the persisted type of TagMatch.
const TagMatchName = "tagMatchBias"

// TagMatch accepts tracks whose metadata satisfies a filter.
type TagMatch struct {
	reg   *meta.Registry
	now   func() time.Time
	match *SimpleMatch

	mu     sync.RWMutex
	filter filter.Filter
}

var _ Bias = (*TagMatch)(nil)

// NewTagMatch creates a tag match bias with an empty "any text contains"
// filter.
func NewTagMatch(env Env) *TagMatch {
	b := &TagMatch{
		reg:    env.registry(),
		now:    env.now,
		filter: filter.Filter{Field: meta.AnyText, Condition: filter.Contains},
	}
	b.match = NewSimpleMatch(b, env, b.plan)
	return b
}

// Name implements Bias.
func (b *TagMatch) Name() string { return TagMatchName }

// String implements Bias.
func (b *TagMatch) String() string {
	f := b.Filter()
	s := f.DisplayString(b.reg)
	if f.Invert {
		return "Not " + s
	}
	return s
}

// Filter returns the current filter, including the invert flag.
func (b *TagMatch) Filter() filter.Filter {
	b.mu.RLock()
	f := b.filter
	b.mu.RUnlock()
	f.Invert = b.match.Invert()
	return f
}

// SetFilter replaces the filter, invalidates the cached result and notifies
// observers.
func (b *TagMatch) SetFilter(f filter.Filter) {
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()

	b.match.setInvertQuiet(f.Invert)
	b.match.invalidate("filter")
	b.match.notifyChanged()
}

// SetInvert changes only the invert flag.
func (b *TagMatch) SetInvert(v bool) { b.match.SetInvert(v) }

// State returns the evaluator state.
func (b *TagMatch) State() State { return b.match.State() }

// MatchingTracks implements Bias.
func (b *TagMatch) MatchingTracks(universe *trackset.Universe) trackset.Set {
	return b.match.MatchingTracks(universe)
}

// TrackMatches implements Bias. Without a finalized result the filter is
// evaluated directly against the track.
func (b *TagMatch) TrackMatches(track meta.Track) bool {
	if track == nil {
		return true
	}
	if member, final := b.match.Lookup(track.UID()); final {
		return member
	}
	return b.Matches(track)
}

// Invalidate implements Bias.
func (b *TagMatch) Invalidate() { b.match.Invalidate() }

// AddObserver implements Bias.
func (b *TagMatch) AddObserver(o Observer) func() { return b.match.AddObserver(o) }

// MarshalElement implements Bias.
func (b *TagMatch) MarshalElement(enc *xml.Encoder, start xml.StartElement) error {
	return b.Filter().MarshalElement(enc, start, b.reg)
}

// UnmarshalElement implements Bias.
func (b *TagMatch) UnmarshalElement(dec *xml.Decoder, start xml.StartElement) error {
	f := b.Filter()
	if err := f.UnmarshalElement(dec, start, b.reg); err != nil {
		return err
	}
	b.SetFilter(f)
	return nil
}

// Matches evaluates the filter directly against track, with the same
// semantics as the collection query built by BuildPlan.
func (b *TagMatch) Matches(track meta.Track) bool {
	f := b.Filter()
	return f.Invert != matchFilter(f, track, b.now())
}

// plan is called by the evaluator with its own lock held and must only read
// the filter.
func (b *TagMatch) plan(now time.Time) query.Plan {
	b.mu.RLock()
	f := b.filter
	b.mu.RUnlock()
	return BuildPlan(f, now)
}

// BuildPlan translates f into a collection query returning unique ids. The
// invert flag is not part of the plan. Operands are integers, so Between is
// expressed with exclusive bounds one past each operand. OlderThan is
// resolved against now and yields a time relative plan. Invalid filters
// match nothing.
func BuildPlan(f filter.Filter, now time.Time) query.Plan {
	if err := f.Validate(); err != nil {
		return query.UIDs(query.Nothing{})
	}

	switch f.Condition {
	case filter.Equals:
		if f.IsNumeric() {
			return query.UIDs(query.NumberFilter{Field: f.Field, Value: f.NumValue, Compare: query.Equals})
		}
		return query.UIDs(textNode(f.Field, f.Value, true))
	case filter.GreaterThan:
		return query.UIDs(query.NumberFilter{Field: f.Field, Value: f.NumValue, Compare: query.GreaterThan})
	case filter.LessThan:
		return query.UIDs(query.NumberFilter{Field: f.Field, Value: f.NumValue, Compare: query.LessThan})
	case filter.Between:
		return query.UIDs(betweenNode(f))
	case filter.OlderThan:
		p := query.UIDs(query.NumberFilter{Field: f.Field, Value: now.Unix() - f.NumValue, Compare: query.LessThan})
		p.TimeRelative = true
		return p
	case filter.Contains:
		return query.UIDs(textNode(f.Field, f.Value, false))
	}
	return query.UIDs(query.Nothing{})
}

// betweenNode bounds f.Field by one past each operand. A bound that would
// leave the int64 range is dropped, since every value already satisfies it.
func betweenNode(f filter.Filter) query.And {
	lo, hi := f.Bounds()
	and := make(query.And, 0, 2)
	if lo > math.MinInt64 {
		and = append(and, query.NumberFilter{Field: f.Field, Value: lo - 1, Compare: query.GreaterThan})
	}
	if hi < math.MaxInt64 {
		and = append(and, query.NumberFilter{Field: f.Field, Value: hi + 1, Compare: query.LessThan})
	}
	return and
}

func textNode(field meta.Field, value string, exact bool) query.Node {
	if field != meta.AnyText {
		return query.TextFilter{Field: field, Value: value, Exact: exact}
	}
	or := make(query.Or, 0, len(meta.TextSearchFields))
	for _, tf := range meta.TextSearchFields {
		or = append(or, query.TextFilter{Field: tf, Value: value, Exact: exact})
	}
	return or
}

// matchFilter is the direct evaluation path, without invert.
func matchFilter(f filter.Filter, track meta.Track, now time.Time) bool {
	if f.Validate() != nil {
		return false
	}

	if !f.IsNumeric() {
		exact := f.Condition == filter.Equals
		if f.Field != meta.AnyText {
			return matchText(track.Value(f.Field).String(), f.Value, exact)
		}
		for _, tf := range meta.TextSearchFields {
			if matchText(track.Value(tf).String(), f.Value, exact) {
				return true
			}
		}
		return false
	}

	v := track.Value(f.Field).Int()
	switch f.Condition {
	case filter.Equals:
		return v == f.NumValue
	case filter.GreaterThan:
		return v > f.NumValue
	case filter.LessThan:
		return v < f.NumValue
	case filter.Between:
		lo, hi := f.Bounds()
		return (lo == math.MinInt64 || v > lo-1) && (hi == math.MaxInt64 || v < hi+1)
	case filter.OlderThan:
		return v < now.Unix()-f.NumValue
	}
	return false
}

func matchText(have, want string, exact bool) bool {
	have, want = strings.ToLower(have), strings.ToLower(want)
	if exact {
		return have == want
	}
	return strings.Contains(have, want)
}
