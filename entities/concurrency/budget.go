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

// Package concurrency carries a per-request parallelism budget on the
// context. Callers that fan out file IO consult the budget instead of
// hardcoding worker counts, so a scheduler can throttle background work
// without threading an extra parameter through every layer.
package concurrency

import (
	"context"
	"runtime"
)

type budgetKey struct{}

func (budgetKey) String() string {
	return "concurrency_budget"
}

// DefaultBudget is the fallback parallelism when the context carries none.
func DefaultBudget() int {
	return runtime.GOMAXPROCS(0)
}

func CtxWithBudget(ctx context.Context, budget int) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

func BudgetFromCtx(ctx context.Context, fallback int) int {
	budget, ok := ctx.Value(budgetKey{}).(int)
	if !ok || budget < 1 {
		return fallback
	}

	return budget
}
