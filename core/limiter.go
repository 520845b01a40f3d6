package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBudgetExceeded is returned by Take once every generation of the budget is used.
var ErrBudgetExceeded = errors.New("generation budget exceeded")

// GenerationBudget caps the generation calls of one run. A zero limit never runs out.
type GenerationBudget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewGenerationBudget returns a budget of limit generations.
func NewGenerationBudget(limit int) *GenerationBudget {
	return &GenerationBudget{limit: limit}
}

// Take reserves one generation. An exhausted budget is not charged, so Used
// never exceeds the limit.
func (b *GenerationBudget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit > 0 && b.used >= b.limit {
		return fmt.Errorf("%w: limit %d", ErrBudgetExceeded, b.limit)
	}
	b.used++
	return nil
}

// Used returns the generations taken so far.
func (b *GenerationBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns the generations left. ok is false for an unlimited budget.
func (b *GenerationBudget) Remaining() (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit == 0 {
		return 0, false
	}
	return b.limit - b.used, true
}
