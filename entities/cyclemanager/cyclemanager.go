//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package cyclemanager drives a recurring background task, such as the
// compaction scheduler, with race-free start and stop semantics.
package cyclemanager

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type (
	// ShouldBreakFunc reports whether a stop was requested, so a CycleFunc
	// can bail out early instead of finishing a long cycle.
	ShouldBreakFunc func() bool
	// CycleFunc is one cycle of work. The return value reports whether the
	// cycle actually did something, tickers may use it to adjust pacing.
	CycleFunc func(shouldBreak ShouldBreakFunc) bool
)

type CycleManager interface {
	Start()
	Stop(ctx context.Context) chan bool
	StopAndWait(ctx context.Context) error
	Running() bool
}

// stopRequest pairs a caller's context with the channel its answer goes to.
// A request whose context expires before the loop services it is denied, the
// manager keeps running.
type stopRequest struct {
	ctx    context.Context
	result chan bool
}

type cycleManager struct {
	sync.RWMutex

	cycleFunc CycleFunc
	ticker    CycleTicker
	running   bool
	stopping  []stopRequest
	wake      chan struct{}
}

func New(ticker CycleTicker, cycleFunc CycleFunc) CycleManager {
	return &cycleManager{
		cycleFunc: cycleFunc,
		ticker:    ticker,
		wake:      make(chan struct{}, 1),
	}
}

// Start launches the cycle goroutine. Calling Start on a running manager is
// a no-op.
func (c *cycleManager) Start() {
	c.Lock()
	defer c.Unlock()

	if c.running {
		return
	}
	c.running = true
	go c.loop()
}

func (c *cycleManager) loop() {
	c.ticker.Start()
	defer c.ticker.Stop()

	for {
		select {
		case <-c.wake:
			if c.serviceStops() {
				return
			}

		case <-c.ticker.C():
			// a pending stop beats the tick when both fired
			select {
			case <-c.wake:
				if c.serviceStops() {
					return
				}
				continue
			default:
			}
			c.ticker.CycleExecuted(c.cycleFunc(c.stopRequested))
		}
	}
}

// serviceStops answers every queued stop request and reports whether the
// loop must exit. Requests whose contexts all expired are answered with
// false and the loop keeps going.
func (c *cycleManager) serviceStops() bool {
	c.Lock()
	defer c.Unlock()

	granted := c.anyStopValid()
	for _, req := range c.stopping {
		req.result <- granted
		close(req.result)
	}
	c.stopping = nil
	if granted {
		c.running = false
	}
	return granted
}

// Stop queues a stop request and returns the channel its outcome arrives
// on. It never blocks. Several pending requests are answered together, and
// the manager only keeps running if every requester's context expired first.
func (c *cycleManager) Stop(ctx context.Context) chan bool {
	c.Lock()
	defer c.Unlock()

	result := make(chan bool, 1)
	if !c.running {
		result <- true
		close(result)
		return result
	}

	c.stopping = append(c.stopping, stopRequest{ctx: ctx, result: result})
	select {
	case c.wake <- struct{}{}:
	default:
		// loop is already due to wake, one wakeup serves all requests
	}
	return result
}

// StopAndWait blocks until the loop confirmed the stop or ctx expired.
func (c *cycleManager) StopAndWait(ctx context.Context) error {
	stopped := c.Stop(ctx)

	select {
	case ok := <-stopped:
		if ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("cycle did not stop")

	case <-ctx.Done():
		// the loop may have granted the stop in the same instant
		select {
		case ok := <-stopped:
			if ok {
				return nil
			}
		default:
		}
		return ctx.Err()
	}
}

func (c *cycleManager) Running() bool {
	c.RLock()
	defer c.RUnlock()

	return c.running
}

func (c *cycleManager) stopRequested() bool {
	c.RLock()
	defer c.RUnlock()

	return c.anyStopValid()
}

// anyStopValid expects the caller to hold at least the read lock.
func (c *cycleManager) anyStopValid() bool {
	for _, req := range c.stopping {
		if req.ctx.Err() == nil {
			return true
		}
	}
	return false
}

// NewNoop satisfies CycleManager for callers that have background work
// disabled, it tracks the running flag and never runs anything.
func NewNoop() CycleManager {
	return &noopCycleManager{}
}

type noopCycleManager struct {
	running bool
}

func (c *noopCycleManager) Start() {
	c.running = true
}

func (c *noopCycleManager) Stop(ctx context.Context) chan bool {
	result := make(chan bool, 1)
	switch {
	case !c.running:
		result <- true
	case ctx.Err() != nil:
		result <- false
	default:
		c.running = false
		result <- true
	}
	close(result)
	return result
}

func (c *noopCycleManager) StopAndWait(ctx context.Context) error {
	if <-c.Stop(ctx) {
		return nil
	}
	return ctx.Err()
}

func (c *noopCycleManager) Running() bool {
	return c.running
}
