package rc

import "math"

// Weak is a non-owning reference to a cell. It keeps the header alive
// (via the weak count) without keeping the payload alive, and can
// race against a concurrent last-Strong-Close via Upgrade.
type Weak[T Traceable[T]] struct {
	c *cell[T]
}

// Clone returns a new Weak handle sharing the same cell, with the weak
// count incremented by one.
func (w *Weak[T]) Clone() *Weak[T] {
	w.c.weak.Add(1)
	return &Weak[T]{c: w.c}
}

// Close releases this handle's contribution to the weak count.
func (w *Weak[T]) Close() {
	if w.c.weak.Load() == 0 {
		panic(newFatal(KindZeroDecrement, "cell %s: Close of a Weak handle with 0 weak references", w.c.id))
	}
	w.c.weak.Add(-1)
}

// Upgrade attempts to promote w to a Strong handle. It fails (ok=false)
// if the payload has already been dropped. The check-then-increment is
// race-free against a concurrent last-Strong-Close: it re-verifies
// liveness after the speculative increment and rolls back if the
// payload was dropped in the interim, so a successful Upgrade always
// observes a payload that was live at the moment the returned Strong
// handle was produced.
func (w *Weak[T]) Upgrade() (*Strong[T], bool) {
	c := w.c

	if c.isDropped() {
		return nil, false
	}

	for {
		cur := c.strong.Load()
		if cur == 0 {
			return nil, false
		}
		if cur >= math.MaxInt64/2 {
			panic(newFatal(KindOverflow, "cell %s: strong reference count overflow on upgrade", c.id))
		}
		if c.strong.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	if c.isDropped() {
		// A concurrent Close dropped the payload between our load and
		// our CAS. Roll back the speculative increment.
		c.strong.Add(-1)
		return nil, false
	}

	return &Strong[T]{c: c}, true
}

// IsValid is an advisory snapshot of whether Upgrade would currently
// succeed. Like StrongRef/WeakRef, it is not a synchronization point.
func (w *Weak[T]) IsValid() bool { return w.c.strong.Load() > 0 }

// StrongRef reports the current strong count.
func (w *Weak[T]) StrongRef() int64 { return w.c.strong.Load() }

// WeakRef reports the current weak count.
func (w *Weak[T]) WeakRef() int64 { return w.c.weak.Load() }
