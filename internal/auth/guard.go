package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karlseguin/ccache/v3"
)

// DefaultGuardTTL is how long a finished guard is remembered for replaying duplicates.
var DefaultGuardTTL = 15 * time.Minute

// State is a [Guard]'s position in its one-way lifecycle.
type State int32

const (
	Idle State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in-progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Guard allows exactly one execution of a side-effecting flow and remembers its result.
type Guard[T any] struct {
	state   atomic.Int32
	mux     sync.Mutex
	done    chan struct{}
	outcome T
}

func newGuard[T any]() *Guard[T] {
	return &Guard[T]{done: make(chan struct{})}
}

// TryStart moves Idle -> InProgress and reports whether this caller made the transition.
func (g *Guard[T]) TryStart() bool {
	return g.state.CompareAndSwap(int32(Idle), int32(InProgress))
}

// State returns the current state.
func (g *Guard[T]) State() State {
	return State(g.state.Load())
}

// Finish records outcome and moves InProgress to Completed (ok) or Failed.
// Only the first call after TryStart has an effect.
func (g *Guard[T]) Finish(ok bool, outcome T) {
	next := Failed
	if ok {
		next = Completed
	}

	g.mux.Lock()
	defer g.mux.Unlock()

	if g.State() != InProgress {
		return
	}
	// outcome is only read after done is closed
	g.outcome = outcome
	g.state.Store(int32(next))
	close(g.done)
}

// Outcome returns the recorded outcome once the guard is finished.
func (g *Guard[T]) Outcome() (T, bool) {
	select {
	case <-g.done:
		return g.outcome, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the guard finishes or ctx is done.
func (g *Guard[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-g.done:
		return g.outcome, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Guards is a bounded registry of guards keyed by callback delivery.
type Guards[T any] struct {
	c   *ccache.Cache[*Guard[T]]
	ttl time.Duration
	mux sync.Mutex
}

// NewGuards creates a registry that forgets guards after ttl (DefaultGuardTTL when ttl <= 0).
func NewGuards[T any](ttl time.Duration) *Guards[T] {
	if ttl <= 0 {
		ttl = DefaultGuardTTL
	}
	c := ccache.New(
		ccache.Configure[*Guard[T]]().
			MaxSize(10_000).
			GetsPerPromote(3).
			PercentToPrune(10),
	)
	return &Guards[T]{c: c, ttl: ttl}
}

// Acquire returns the guard for key, creating it if needed, and reports whether the caller
// won the Idle -> InProgress transition.
func (g *Guards[T]) Acquire(key string) (*Guard[T], bool) {
	g.mux.Lock()
	item := g.c.Get(key)
	var guard *Guard[T]
	if item != nil && !item.Expired() {
		guard = item.Value()
	} else {
		guard = newGuard[T]()
		g.c.Set(key, guard, g.ttl)
	}
	g.mux.Unlock()

	return guard, guard.TryStart()
}

// Stop releases the registry's background worker.
func (g *Guards[T]) Stop() {
	g.c.Stop()
}
