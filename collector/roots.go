package collector

import (
	"github.com/sjrsjz/arc-gc/rc"
)

// identityOf returns the opaque cell-pointer identity collectLocked's
// mark table keys on. It is never dereferenced, only compared.
func identityOf[T rc.Traceable[T]](h *rc.Strong[T]) uintptr {
	return rc.CellPointer(h)
}

// adjustDetached mirrors what Detach does to a cell's attached count,
// for cells the sweep phase is dropping from the heap set directly.
func adjustDetached[T rc.Traceable[T]](h *rc.Strong[T]) {
	rc.AdjustAttached(h, -1)
}

// newRootQueue seeds a trace queue with every root in refs: a
// registered cell is a root when its strong count exceeds its attached
// count (the number of collector registrations holding it), which
// means some handle outside every heap set still reaches it.
func newRootQueue[T rc.Traceable[T]](refs []*rc.Strong[T]) *rc.WeakQueue[T] {
	queue := rc.NewWeakQueue[T]()
	for _, r := range refs {
		if r.StrongRef() > rc.AttachedCount(r) {
			queue.PushBack(r.AsWeak())
		}
	}
	return queue
}
