/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dynamic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/collection/memory"
	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/meta"
)

// signallingBus reports when a subscription has been made so tests do not
// publish into the void.
type signallingBus struct {
	*events.Bus
	subscribed chan struct{}
}

func (b *signallingBus) Subscribe(t events.EventType) events.Subscriber {
	sub := b.Bus.Subscribe(t)
	close(b.subscribed)
	return sub
}

func TestInvalidateOnCollectionUpdate(t *testing.T) {
	bus := &signallingBus{Bus: events.NewBus(), subscribed: make(chan struct{})}
	coll := memory.New(memory.Config{}, zerolog.Nop())
	coll.Replace([]meta.Track{meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles"))})

	b := newTestTagMatch(coll, artistBeat)
	waitResult(t, b, coll.Universe())
	require.Equal(t, StateValid, b.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		InvalidateOn(ctx, bus, b)
		close(done)
	}()
	<-bus.subscribed

	bus.Publish(events.EventCollectionUpdated, events.Payload{"collection": "memory"})
	assert.Eventually(t, func() bool { return b.State() == StateInvalid }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("InvalidateOn did not return after cancel")
	}
}

// orderLog records the order in which named targets were invalidated.
type orderLog struct {
	mu    sync.Mutex
	names []string
}

func (l *orderLog) target(name string) Invalidator {
	return invalidatorFunc(func() {
		l.mu.Lock()
		l.names = append(l.names, name)
		l.mu.Unlock()
	})
}

func (l *orderLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

type invalidatorFunc func()

func (f invalidatorFunc) Invalidate() { f() }

func TestInvalidateOnKeepsTargetOrder(t *testing.T) {
	bus := &signallingBus{Bus: events.NewBus(), subscribed: make(chan struct{})}
	log := &orderLog{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go InvalidateOn(ctx, bus, log.target("tracks"), log.target("results"), log.target("live"))
	<-bus.subscribed

	bus.Publish(events.EventCollectionUpdated, events.Payload{"collection": "library"})
	bus.Publish(events.EventCollectionUpdated, events.Payload{"collection": "library"})
	assert.Eventually(t, func() bool { return len(log.snapshot()) == 6 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"tracks", "results", "live", "tracks", "results", "live"}, log.snapshot())
}

func TestPublisher(t *testing.T) {
	bus := events.NewBus()
	results := bus.Subscribe(events.EventBiasResultReady)
	changes := bus.Subscribe(events.EventBiasChanged)

	coll := memory.New(memory.Config{}, zerolog.Nop())
	coll.Replace([]meta.Track{
		meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles")),
		meta.NewTrack("t2").Set(meta.Artist, meta.Text("Beat Happening")),
		meta.NewTrack("t3").Set(meta.Artist, meta.Text("Stones")),
	})

	b := newTestTagMatch(coll, artistBeat)
	b.AddObserver(Publisher{Broker: bus})

	waitResult(t, b, coll.Universe())
	select {
	case got := <-results:
		assert.Equal(t, TagMatchName, got["bias"])
		assert.Equal(t, 2, got["tracks"])
	case <-time.After(time.Second):
		t.Fatal("no result event")
	}

	b.SetInvert(true)
	got := <-changes
	assert.Equal(t, `Not Artist contains "beat"`, got["description"])
}
