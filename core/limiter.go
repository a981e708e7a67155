package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelCallLimit is returned by ModelLimiter.Increment once the budget is spent.
var ErrModelCallLimit = errors.New("model call limit reached")

// ModelLimiter enforces a maximum number of model calls for one agent run.
type ModelLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewModelLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Increment reserves one call. It returns ErrModelCallLimit without counting
// the call when the budget is already spent.
func (ml *ModelLimiter) Increment() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max > 0 && ml.count >= ml.max {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, ml.max)
	}

	ml.count++

	return nil
}

// Count returns the current number of calls made.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	return ml.count
}

// Max returns the configured budget (0 means unlimited).
func (ml *ModelLimiter) Max() int { return ml.max }

// Remaining returns how many calls are left before hitting the limit.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1 // unlimited
	}

	return ml.max - ml.count
}
