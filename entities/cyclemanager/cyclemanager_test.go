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
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleManagerRunsCycles(t *testing.T) {
	var cycles int32
	cm := New(NewFixedTicker(5*time.Millisecond), func(shouldBreak ShouldBreakFunc) bool {
		atomic.AddInt32(&cycles, 1)
		return true
	})

	cm.Start()
	assert.True(t, cm.Running())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&cycles) >= 3
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Nil(t, cm.StopAndWait(ctx))
	assert.False(t, cm.Running())
}

func TestCycleManagerStopWithoutStart(t *testing.T) {
	cm := New(NewFixedTicker(time.Minute), func(shouldBreak ShouldBreakFunc) bool {
		return false
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Nil(t, cm.StopAndWait(ctx))
}

func TestCycleManagerDoubleStart(t *testing.T) {
	var cycles int32
	cm := New(NewFixedTicker(5*time.Millisecond), func(shouldBreak ShouldBreakFunc) bool {
		atomic.AddInt32(&cycles, 1)
		return true
	})

	cm.Start()
	cm.Start()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&cycles) >= 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Nil(t, cm.StopAndWait(ctx))
}

func TestNoopCycleManager(t *testing.T) {
	cm := NewNoop()
	cm.Start()
	assert.True(t, cm.Running())

	require.Nil(t, cm.StopAndWait(context.Background()))
	assert.False(t, cm.Running())
}
