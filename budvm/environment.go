package budvm

import (
	"context"
	"math"
	"sync"
)

type ExecutionBehavior uint8

const (
	Continue ExecutionBehavior = iota
	Pause
)

// Environment is consulted before every instruction.
type Environment interface {
	Step() ExecutionBehavior
}

type EnvironmentFunc func() ExecutionBehavior

func (f EnvironmentFunc) Step() ExecutionBehavior {
	return f()
}

// Unbounded never pauses.
type Unbounded struct{}

func (Unbounded) Step() ExecutionBehavior {
	return Continue
}

// Budgeted allows one instruction per unit of budget and pauses when the
// budget is exhausted.
type Budgeted struct {
	mu      sync.Mutex
	balance int
}

var _ Environment = new(Budgeted)

func NewBudgeted(initial int) *Budgeted {
	return &Budgeted{
		balance: max(0, initial),
	}
}

func (b *Budgeted) Step() ExecutionBehavior {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balance == 0 {
		return Pause
	}
	b.balance--
	return Continue
}

func (b *Budgeted) Balance() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}

// AddBudget increases the balance, saturating at the maximum int.
func (b *Budgeted) AddBudget(amount int) {
	if amount <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balance > math.MaxInt-amount {
		b.balance = math.MaxInt
		return
	}
	b.balance += amount
}

type contextEnvironment struct {
	ctx   context.Context
	inner Environment
}

// WithContext pauses when ctx is done and otherwise defers to inner.
func WithContext(ctx context.Context, inner Environment) Environment {
	if inner == nil {
		inner = Unbounded{}
	}
	return contextEnvironment{
		ctx:   ctx,
		inner: inner,
	}
}

func (c contextEnvironment) Step() ExecutionBehavior {
	if c.ctx.Err() != nil {
		return Pause
	}
	return c.inner.Step()
}

// Inner returns the wrapped environment.
func (c contextEnvironment) Inner() Environment {
	return c.inner
}
