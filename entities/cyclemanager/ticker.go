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

package cyclemanager

import (
	"time"
)

// CycleTicker provides the tick channel the manager waits on between cycle
// executions. CycleExecuted is called after every cycle with whether the
// cycle did actual work, tickers may use that to adjust their interval.
type CycleTicker interface {
	Start()
	Stop()
	C() <-chan time.Time
	CycleExecuted(executed bool)
}

type fixedTicker struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewFixedTicker fires at a constant interval regardless of whether the
// previous cycles did any work.
func NewFixedTicker(interval time.Duration) CycleTicker {
	return &fixedTicker{
		interval: interval,
		ticker:   time.NewTicker(time.Hour),
	}
}

func (t *fixedTicker) Start() {
	t.ticker.Reset(t.interval)
}

func (t *fixedTicker) Stop() {
	t.ticker.Stop()
}

func (t *fixedTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *fixedTicker) CycleExecuted(executed bool) {
}
