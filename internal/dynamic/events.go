/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"context"

	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/trackset"
)

// Invalidator is anything that drops cached results on demand. Every Bias and
// Group is one.
type Invalidator interface {
	Invalidate()
}

// InvalidateOn invalidates targets each time the collection reports a change,
// until ctx is done. It blocks; run it in its own goroutine.
func InvalidateOn(ctx context.Context, broker events.Broker, targets ...Invalidator) {
	sub := broker.Subscribe(events.EventCollectionUpdated)
	defer broker.Unsubscribe(events.EventCollectionUpdated, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			for _, t := range targets {
				t.Invalidate()
			}
		}
	}
}

// Publisher is an Observer that forwards bias notifications to an event
// broker.
type Publisher struct {
	Broker events.Broker
}

// ResultReady implements Observer.
func (p Publisher) ResultReady(b Bias, set trackset.Set) {
	p.Broker.Publish(events.EventBiasResultReady, events.Payload{
		"bias":        b.Name(),
		"description": b.String(),
		"tracks":      countOf(set),
	})
}

// Changed implements Observer.
func (p Publisher) Changed(b Bias) {
	p.Broker.Publish(events.EventBiasChanged, events.Payload{
		"bias":        b.Name(),
		"description": b.String(),
	})
}
