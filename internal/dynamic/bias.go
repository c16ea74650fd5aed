/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dynamic implements the biases a dynamic playlist generator uses to
// narrow a universe of candidate tracks, and their persisted form.
package dynamic

import (
	"encoding/xml"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// ErrUnknownBias indicates a bias type with no registered factory.
var ErrUnknownBias = errors.New("unknown bias type")

// Bias is a constraint on the tracks a generator may pick.
type Bias interface {
	// Name is the persisted type name.
	Name() string
	// String renders the bias for humans.
	String() string

	MarshalElement(enc *xml.Encoder, start xml.StartElement) error
	UnmarshalElement(dec *xml.Decoder, start xml.StartElement) error

	// MatchingTracks returns the tracks of universe the bias accepts. It never
	// blocks: while a result is being computed the returned set is outstanding
	// and observers are told once it is ready.
	MatchingTracks(universe *trackset.Universe) trackset.Set
	// TrackMatches answers for a single candidate. Before a result is ready
	// the answer is an approximation that errs on the side of matching.
	TrackMatches(track meta.Track) bool
	// Invalidate discards any cached result.
	Invalidate()
	// AddObserver registers o and returns a func removing it.
	AddObserver(o Observer) (remove func())
}

// Observer is notified about bias results and edits. Calls happen outside the
// bias lock, so an observer may call back into the bias.
type Observer interface {
	ResultReady(b Bias, set trackset.Set)
	Changed(b Bias)
}

// ObserverFuncs adapts functions to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	OnResult  func(b Bias, set trackset.Set)
	OnChanged func(b Bias)
}

// ResultReady implements Observer.
func (o ObserverFuncs) ResultReady(b Bias, set trackset.Set) {
	if o.OnResult != nil {
		o.OnResult(b, set)
	}
}

// Changed implements Observer.
func (o ObserverFuncs) Changed(b Bias) {
	if o.OnChanged != nil {
		o.OnChanged(b)
	}
}

// Env carries the collaborators a bias is built with.
type Env struct {
	Maker    query.Maker
	Registry *meta.Registry
	Logger   zerolog.Logger
	// Now resolves time-relative operands. Defaults to time.Now.
	Now func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) registry() *meta.Registry {
	if e.Registry != nil {
		return e.Registry
	}
	return meta.NewRegistry()
}
