package rc

import (
	"sync"
	"sync/atomic"

	"github.com/sjrsjz/arc-gc/internal/gclog"
	"github.com/sjrsjz/arc-gc/internal/ident"
)

// Destroyer is an optional capability a payload can implement to run
// cleanup exactly once, at the moment its last Strong handle is
// closed. It runs synchronously on the closing goroutine, before Close
// returns.
type Destroyer interface {
	Destroy()
}

// cell is the shared control block backing a Strong/Weak handle pair.
// It is never exposed outside this package: all access goes through
// Strong[T] or Weak[T] so the refcount and liveness invariants stay in
// one place. Liveness is tracked by an explicit flag rather than a nil
// check on value, since T itself is not guaranteed comparable to nil —
// any still-live Weak handle keeps observing a valid header even after
// the payload slot has been cleared.
type cell[T Traceable[T]] struct {
	mu      sync.Mutex // guards the present -> absent transition of value
	value   T
	dropped bool
	once    sync.Once
	strong  atomic.Int64
	weak    atomic.Int64
	marked  atomic.Bool
	attach  atomic.Int64 // attached_gc_count in spec terms
	id      string
}

func newCell[T Traceable[T]](v T) *cell[T] {
	c := &cell[T]{
		value: v,
		id:    ident.Short(),
	}
	c.strong.Store(1)
	return c
}

func (c *cell[T]) mark()          { c.marked.Store(true) }
func (c *cell[T]) unmark()        { c.marked.Store(false) }
func (c *cell[T]) isMarked() bool { return c.marked.Load() }

func (c *cell[T]) isDropped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// dropPayload idempotently clears the value slot and, if the payload
// implements Destroyer, runs its Destroy exactly once. Safe to call
// more than once; only the first call has any effect.
func (c *cell[T]) dropPayload() {
	c.once.Do(func() {
		c.mu.Lock()
		v := c.value
		var zero T
		c.value = zero
		c.dropped = true
		c.mu.Unlock()

		gclog.With("rc").Debug("payload dropped", "cell", c.id)
		if d, ok := any(v).(Destroyer); ok {
			d.Destroy()
		}
	})
}

// ref returns the payload, panicking loudly if it has already been
// dropped. Strong holders never observe this panic in practice: while
// any Strong handle exists, strong_rc >= 1, which by invariant means
// the payload has not yet been dropped.
func (c *cell[T]) ref() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		gclog.With("rc").Error("access to dropped payload", "cell", c.id)
		panic(newFatal(KindDroppedAccess, "cell %s: access to dropped payload", c.id))
	}
	return c.value
}
