package collector

import (
	"sync"
	"unsafe"

	"golang.org/x/sync/singleflight"

	"github.com/sjrsjz/arc-gc/internal/gclog"
	"github.com/sjrsjz/arc-gc/internal/ident"
	"github.com/sjrsjz/arc-gc/rc"
)

const (
	defaultPercentage = 20
	// handleOverhead approximates the bytes a single heap-set entry
	// costs beyond the payload itself: the cell's counters, mutex,
	// once, and id, plus the Strong handle's own pointer. Like the
	// reference this is ported from, this is a deliberately rough
	// estimate used only to drive the memory-threshold heuristic, not
	// an accounting of real allocator bytes.
	handleOverhead = 64
)

// Collector registers Strong handles as a heap and periodically runs
// mark-sweep tracing over their Traceable payloads. The zero value is
// not usable; construct with New or one of the NewWith* variants.
//
// A Collector is safe for concurrent use: every operation that touches
// the heap set (Attach, Detach, Collect, GetAll, ObjectCount, Create)
// takes the same mutex while it reads or changes that set, and Collect
// holds it for the whole mark-sweep pass, matching the
// stop-the-world-relative-to-the-collector model this type implements.
// Attach releases the mutex before running a triggered collection,
// which takes it again.
// Payload mutation outside that lock is the caller's responsibility.
type Collector[T rc.Traceable[T]] struct {
	mu              sync.Mutex
	refs            []*rc.Strong[T]
	attachCount     int
	percentage      int
	memoryThreshold *uint64
	allocatedMemory uint64
	metrics         *metricsSet
	id              string
	sf              singleflight.Group
}

// New returns a Collector with the default 20% growth-since-last-collection
// trigger and no memory threshold.
func New[T rc.Traceable[T]]() *Collector[T] {
	return NewWithPercentage[T](defaultPercentage)
}

// NewWithPercentage returns a Collector that triggers a collection once
// attach_count since the last cycle reaches max(1, object_count*percentage/100).
func NewWithPercentage[T rc.Traceable[T]](percentage int) *Collector[T] {
	return &Collector[T]{
		percentage: percentage,
		id:         ident.Short(),
	}
}

// NewWithMemoryThreshold returns a Collector that triggers a collection
// whenever its estimated allocated bytes reach bytes, in addition to the
// default percentage trigger.
func NewWithMemoryThreshold[T rc.Traceable[T]](bytes uint64) *Collector[T] {
	c := NewWithPercentage[T](defaultPercentage)
	c.memoryThreshold = &bytes
	return c
}

// NewWithThresholds combines an explicit percentage trigger with a
// memory-byte trigger; either firing runs a collection.
func NewWithThresholds[T rc.Traceable[T]](percentage int, bytes uint64) *Collector[T] {
	c := NewWithPercentage[T](percentage)
	c.memoryThreshold = &bytes
	return c
}

// Attach registers h with the collector: it clones h into the heap
// set (raising AttachedCount on h's cell by one), updates the
// allocated-memory estimate, and then runs a collection if the
// heuristic trigger fires. Concurrent Attach calls that each observe
// the trigger are coalesced into a single physical mark-sweep pass via
// singleflight — every caller still blocks until a collection has run,
// but only one actually runs.
func (c *Collector[T]) Attach(h *rc.Strong[T]) {
	c.mu.Lock()
	clone := h.Clone()
	c.refs = append(c.refs, clone)
	rc.AdjustAttached(h, 1)
	c.attachCount++
	c.allocatedMemory += c.objectSize()
	c.refreshMetricsLocked()
	trigger := c.shouldCollectLocked()
	c.mu.Unlock()

	gclog.With("collector").Debug("attached", "collector", c.id, "objects", c.ObjectCount())

	if trigger {
		c.sf.Do("collect", func() (any, error) {
			c.Collect()
			return nil, nil
		})
	}
}

// Detach removes h from the heap set by cell-pointer identity and
// reports whether it was found. A detach never triggers a collection.
func (c *Collector[T]) Detach(h *rc.Strong[T]) bool {
	c.mu.Lock()
	idx := -1
	for i, r := range c.refs {
		if rc.StrongPtrEqual(r, h) {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}

	last := len(c.refs) - 1
	removed := c.refs[idx]
	c.refs[idx] = c.refs[last]
	c.refs[last] = nil
	c.refs = c.refs[:last]

	rc.AdjustAttached(h, -1)
	c.allocatedMemory = saturatingSub(c.allocatedMemory, c.objectSize())
	c.refreshMetricsLocked()
	c.mu.Unlock()

	removed.Close()
	return true
}

// Create allocates a new Strong handle holding value, attaches it to
// this collector, and returns it. The returned handle is the external
// one: it is distinct from (and in addition to) the clone the heap set
// now holds.
func (c *Collector[T]) Create(value T) *rc.Strong[T] {
	h := rc.NewStrong(value)
	c.Attach(h)
	return h
}

// ObjectCount reports how many cells are currently registered.
func (c *Collector[T]) ObjectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.refs)
}

// GetAll returns a fresh Strong handle to every registered cell. Each
// returned handle independently contributes to the strong count — it
// is not the collector's internal storage.
func (c *Collector[T]) GetAll() []*rc.Strong[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*rc.Strong[T], len(c.refs))
	for i, r := range c.refs {
		out[i] = r.Clone()
	}
	return out
}

// AllocatedMemory reports the current estimated allocated-byte total
// across registered cells.
func (c *Collector[T]) AllocatedMemory() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allocatedMemory
}

// MemoryThreshold reports the configured memory trigger, if any.
func (c *Collector[T]) MemoryThreshold() (bytes uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memoryThreshold == nil {
		return 0, false
	}
	return *c.memoryThreshold, true
}

// SetMemoryThreshold installs or replaces the memory trigger.
func (c *Collector[T]) SetMemoryThreshold(bytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memoryThreshold = &bytes
}

// Close drains the heap set without running mark-sweep: every
// registered cell's attached count is decremented and its heap-set
// Strong handle closed, same as an ordinary Collector going out of
// scope would in a destructor-based language. Any surviving cycles
// among the drained cells are the caller's responsibility — they were
// about to become unreachable anyway.
func (c *Collector[T]) Close() {
	c.mu.Lock()
	refs := c.refs
	c.refs = nil
	c.allocatedMemory = 0
	c.refreshMetricsLocked()
	c.mu.Unlock()

	for _, r := range refs {
		rc.AdjustAttached(r, -1)
		r.Close()
	}
}

func (c *Collector[T]) objectSize() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero)) + handleOverhead
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
