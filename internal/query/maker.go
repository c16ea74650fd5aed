/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package query

import (
	"context"
	"sync"
)

// Sink receives the results of one run. ResultReady may be called any number
// of times, possibly from several goroutines, and Done exactly once after the
// last batch.
type Sink interface {
	ResultReady(collectionID string, uids []string)
	Done(err error)
}

// Maker executes plans against a collection. Run returns immediately; results
// are delivered to sink. Cancelling ctx stops the run, which still ends with
// Done.
type Maker interface {
	Run(ctx context.Context, plan Plan, sink Sink)
}

// MakerFunc adapts a function to Maker.
type MakerFunc func(ctx context.Context, plan Plan, sink Sink)

// Run implements Maker.
func (f MakerFunc) Run(ctx context.Context, plan Plan, sink Sink) { f(ctx, plan, sink) }

// Collect runs plan and blocks until it completes, returning every uid
// delivered in batch order.
func Collect(ctx context.Context, maker Maker, plan Plan) ([]string, error) {
	c := &collector{done: make(chan struct{})}
	maker.Run(ctx, plan, c)

	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uids, c.err
}

type collector struct {
	mu   sync.Mutex
	uids []string
	err  error
	once sync.Once
	done chan struct{}
}

func (c *collector) ResultReady(_ string, uids []string) {
	c.mu.Lock()
	c.uids = append(c.uids, uids...)
	c.mu.Unlock()
}

func (c *collector) Done(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}
