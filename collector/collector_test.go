package collector_test

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjrsjz/arc-gc/collector"
	"github.com/sjrsjz/arc-gc/rc"
)

// node is a minimal graph payload for collector tests: it can hold
// weak edges to other nodes and reports when it is destroyed.
type node struct {
	mu      sync.Mutex
	name    string
	edges   []*rc.Weak[*node]
	onDrop  func(string)
	visits  int
}

func newNode(name string, onDrop func(string)) *node {
	return &node{name: name, onDrop: onDrop}
}

func (n *node) link(to *rc.Weak[*node]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edges = append(n.edges, to)
}

func (n *node) Collect(queue *rc.WeakQueue[*node]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits++
	for _, e := range n.edges {
		queue.PushBack(e.Clone())
	}
}

func (n *node) Destroy() {
	n.mu.Lock()
	name := n.name
	onDrop := n.onDrop
	n.mu.Unlock()
	if onDrop != nil {
		onDrop(name)
	}
}

func newDropRecorder() (func(string), func() []string) {
	var mu sync.Mutex
	var dropped []string
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		dropped = append(dropped, name)
	}
	snapshot := func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := make([]string, len(dropped))
		copy(out, dropped)
		return out
	}
	return record, snapshot
}

func TestEmptyCollectorCollectIsNoop(t *testing.T) {
	c := collector.New[*node]()
	assert.NotPanics(t, func() { c.Collect() })
	assert.Equal(t, 0, c.ObjectCount())
}

func TestAcyclicObjectSurvivesWhileRooted(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()

	root := c.Create(newNode("root", record))
	defer root.Close()

	c.Collect()
	assert.Equal(t, 1, c.ObjectCount())
	assert.Empty(t, dropped())
}

func TestUnreachableStandaloneObjectIsSwept(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()

	h := c.Create(newNode("orphan", record))
	h.Close() // drop the only external handle; the heap-set clone alone remains

	c.Collect()
	assert.Equal(t, 0, c.ObjectCount())
	assert.Equal(t, []string{"orphan"}, dropped())
}

func TestCycleIsCollectedWhenUnrooted(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()

	x := c.Create(newNode("x", record))
	y := c.Create(newNode("y", record))

	x.AsRef().link(y.AsWeak())
	y.AsRef().link(x.AsWeak())

	// Drop both external handles; only the collector's own heap-set
	// clones keep them "alive" by strong count (the mutual edges are
	// weak), so neither is a root once that's all that's left.
	x.Close()
	y.Close()

	c.Collect()
	assert.Equal(t, 0, c.ObjectCount())
	got := dropped()
	assert.ElementsMatch(t, []string{"x", "y"}, got)
}

func TestRootPreservedByExternalHandleSurvivesCycle(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()

	x := c.Create(newNode("x", record))
	y := c.Create(newNode("y", record))
	x.AsRef().link(y.AsWeak())
	y.AsRef().link(x.AsWeak())

	// x has an external handle kept open; y does not.
	y.Close()

	c.Collect()
	require.Equal(t, 2, c.ObjectCount())
	assert.Empty(t, dropped(), "y is reachable from rooted x and must survive")

	x.Close()
}

func TestSelfReferenceTraversedOnce(t *testing.T) {
	c := collector.New[*node]()
	n := newNode("loop", nil)
	h := c.Create(n)
	n.link(h.AsWeak())
	n.link(h.AsWeak())

	// While h roots it, one Collect visits the node exactly once even
	// though it enqueues itself twice.
	n.mu.Lock()
	before := n.visits
	n.mu.Unlock()
	c.Collect()
	n.mu.Lock()
	assert.Equal(t, before+1, n.visits)
	n.mu.Unlock()

	h.Close()
	// Nothing roots it, so it should sweep cleanly despite the
	// duplicate self-edges, and Collect() over it must not hang.
	c.Collect()
	assert.Equal(t, 0, c.ObjectCount())
}

func TestDoubleCollectIsIdempotent(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()
	h := c.Create(newNode("a", record))
	h.Close()

	c.Collect()
	c.Collect()
	assert.Equal(t, []string{"a"}, dropped())
}

func TestAttachDetachRoundTrip(t *testing.T) {
	c := collector.New[*node]()
	s := rc.NewStrong(newNode("a", nil))
	defer s.Close()

	c.Attach(s)
	assert.Equal(t, 1, c.ObjectCount())
	assert.EqualValues(t, 1, rc.AttachedCount(s))

	ok := c.Detach(s)
	assert.True(t, ok)
	assert.Equal(t, 0, c.ObjectCount())
	assert.EqualValues(t, 0, rc.AttachedCount(s))

	assert.False(t, c.Detach(s), "detaching twice must report false, not panic")
}

func TestPercentageTriggerRunsCollectionAutomatically(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.NewWithPercentage[*node](50)

	h1 := c.Create(newNode("a", record))
	h1.Close()

	// The first Create already ran a collection and reset attachCount.
	// The second Create brings attachCount to 1 against an object_count
	// of 2 at heuristic-check time; 2*50/100 = 1, so the threshold is met
	// and Attach triggers a collection that sweeps "a" away.
	h2 := c.Create(newNode("b", record))
	defer h2.Close()

	assert.Contains(t, dropped(), "a")
}

func TestMemoryThresholdTriggersCollection(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.NewWithMemoryThreshold[*node](1)

	h := c.Create(newNode("a", record))
	h.Close()

	c.Create(newNode("b", record))

	assert.Contains(t, dropped(), "a")
}

func TestGetAllReturnsIndependentHandles(t *testing.T) {
	c := collector.New[*node]()
	h := c.Create(newNode("a", nil))
	defer h.Close()

	all := c.GetAll()
	require.Len(t, all, 1)
	defer all[0].Close()

	assert.EqualValues(t, 3, h.StrongRef()) // external + heap-set clone + GetAll clone
}

func TestConcurrentAttachCollectRace(t *testing.T) {
	c := collector.New[*node]()
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			h := c.Create(newNode("x", nil))
			c.Collect()
			h.Close()
		}(i)
	}
	wg.Wait()
	c.Collect()
	assert.Equal(t, 0, c.ObjectCount())
}

func TestCloseDrainsWithoutTracing(t *testing.T) {
	record, dropped := newDropRecorder()
	c := collector.New[*node]()
	h := c.Create(newNode("a", record))
	h.Close()

	c.Close()
	assert.Equal(t, []string{"a"}, dropped())
	assert.Equal(t, 0, c.ObjectCount())
}

func TestRegisterMetricsIsIdempotentAndReflectsState(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := collector.New[*node]()
	require.NoError(t, c.RegisterMetrics(reg))
	require.NoError(t, c.RegisterMetrics(reg))

	h := c.Create(newNode("a", nil))
	defer h.Close()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	objects := -1.0
	for _, f := range families {
		if f.GetName() == "arcgc_objects" {
			objects = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, objects)
}
