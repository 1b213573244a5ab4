package rc

import (
	"unsafe"

	"github.com/sjrsjz/arc-gc/internal/gclog"
)

// Strong is an atomically reference-counted, owning handle to a cell.
// Cloning increments the shared strong count; Close decrements it and,
// on the last strong handle, deterministically drops the payload.
//
// A Strong value is safe to share across goroutines: all count
// mutations are atomic. Mutating the payload itself is not
// synchronized by this package — callers sharing a payload across
// goroutines must add their own interior-mutability primitive, or rely
// on TryAsMut/GetMut's uniqueness guarantee.
type Strong[T Traceable[T]] struct {
	c *cell[T]
}

// NewStrong allocates a new cell holding value and returns the sole
// Strong handle to it (strong=1, weak=0).
func NewStrong[T Traceable[T]](value T) *Strong[T] {
	return &Strong[T]{c: newCell(value)}
}

// Clone returns a new Strong handle sharing the same cell, with the
// strong count incremented by one.
func (s *Strong[T]) Clone() *Strong[T] {
	if s.c.strong.Load() == 0 {
		panic(newFatal(KindZeroDecrement, "cell %s: Clone of a Strong handle with 0 strong references", s.c.id))
	}
	s.c.strong.Add(1)
	return &Strong[T]{c: s.c}
}

// Close releases this handle's contribution to the strong count. On
// the last strong handle, the payload is dropped now, deterministically,
// on the calling goroutine.
func (s *Strong[T]) Close() {
	c := s.c
	if c.strong.Load() == 0 {
		panic(newFatal(KindZeroDecrement, "cell %s: Close of a Strong handle with 0 strong references", c.id))
	}
	if c.strong.Add(-1) == 0 {
		c.dropPayload()
		if c.weak.Load() == 0 {
			gclog.With("rc").Debug("cell header retired", "cell", c.id)
		}
	}
}

// AsWeak returns a new Weak handle observing the same cell.
func (s *Strong[T]) AsWeak() *Weak[T] {
	s.c.weak.Add(1)
	return &Weak[T]{c: s.c}
}

// AsRef returns the payload. It always succeeds while s is a valid
// handle. When T is itself a pointer type, as it is for any Traceable
// implemented with pointer receivers, mutation through the returned
// value is unsynchronized by this package — see TryAsMut/GetMut for a
// uniqueness-checked alternative.
func (s *Strong[T]) AsRef() T {
	return s.c.ref()
}

// TryAsMut returns the payload iff this is provably the only handle to
// the cell (strong == 1 and weak == 0), so mutation through it cannot
// race with another holder. It returns (zero, false) otherwise rather
// than failing.
func (s *Strong[T]) TryAsMut() (T, bool) {
	if s.c.strong.Load() == 1 && s.c.weak.Load() == 0 {
		return s.c.ref(), true
	}
	var zero T
	return zero, false
}

// GetMut is TryAsMut but panics with a descriptive FatalError instead
// of returning ok=false. Use it only where uniqueness is a program
// invariant, not a runtime possibility to branch on.
func (s *Strong[T]) GetMut() T {
	v, ok := s.TryAsMut()
	if !ok {
		panic(newFatal(KindNotUnique, "cell %s: GetMut requires strong=1 and weak=0, got strong=%d weak=%d",
			s.c.id, s.c.strong.Load(), s.c.weak.Load()))
	}
	return v
}

// StrongRef reports the current strong count. It is a coarse snapshot
// for heuristics and tests, not a synchronization point.
func (s *Strong[T]) StrongRef() int64 { return s.c.strong.Load() }

// WeakRef reports the current weak count, with the same caveats as
// StrongRef.
func (s *Strong[T]) WeakRef() int64 { return s.c.weak.Load() }

// StrongPtrEqual reports whether a and b refer to the same cell.
func StrongPtrEqual[T Traceable[T]](a, b *Strong[T]) bool {
	return a.c == b.c
}

// AttachedCount reports how many collector registrations currently
// hold a Strong handle to h's cell. It is collector plumbing exposed
// across the package boundary for collector.Collector's use; ordinary
// callers should treat it as advisory, matching StrongRef/WeakRef.
func AttachedCount[T Traceable[T]](h *Strong[T]) int64 {
	return h.c.attach.Load()
}

// AdjustAttached atomically changes the attached-registration count on
// h's cell by delta and returns the new value. Only a Collector's
// Attach/Detach/Collect/Close should ever call this; it exists so the
// collector package can maintain the invariant attached <= strong
// without this package exposing the cell type itself.
func AdjustAttached[T Traceable[T]](h *Strong[T], delta int64) int64 {
	return h.c.attach.Add(delta)
}

// CellPointer returns an opaque, comparable identity for h's
// underlying cell, suitable as a map key for mark tables. It carries
// no meaning beyond equality and must never be dereferenced.
func CellPointer[T Traceable[T]](h *Strong[T]) uintptr {
	return uintptr(unsafe.Pointer(h.c))
}
