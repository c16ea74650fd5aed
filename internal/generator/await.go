/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package generator

import (
	"context"
	"time"

	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/trackset"
)

type readySet struct {
	index int
	set   trackset.Set
}

// Await asks every bias for its tracks over universe and waits up to wait
// for the outstanding ones. It returns the finished sets and the biases that
// were still pending when the wait ended.
func Await(ctx context.Context, universe *trackset.Universe, biases []dynamic.Bias, wait time.Duration) ([]trackset.Set, []dynamic.Bias) {
	ready := make(chan readySet, len(biases))
	results := make([]trackset.Set, len(biases))
	outstanding := 0

	for i, b := range biases {
		i := i
		remove :=b.AddObserver(dynamic.ObserverFuncs{OnResult: func(_ dynamic.Bias, set trackset.Set) {
			if set.Universe() != universe {
				return
			}
			select {
			case ready <- readySet{index: i, set: set}:
			default:
			}
		}})
		defer remove()

		results[i] = b.MatchingTracks(universe)
		if results[i].IsOutstanding() {
			outstanding++
		}
	}

	if outstanding > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
	loop:
		for outstanding > 0 {
			select {
			case r := <-ready:
				if results[r.index].IsOutstanding() {
					results[r.index] = r.set
					outstanding--
				}
			case <-timer.C:
				break loop
			case <-ctx.Done():
				break loop
			}
		}
	}

	var sets []trackset.Set
	var pending []dynamic.Bias
	for i, b := range biases {
		if results[i].IsOutstanding() {
			pending = append(pending, b)
			continue
		}
		sets = append(sets, results[i])
	}
	return sets, pending
}
