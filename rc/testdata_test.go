package rc_test

import (
	"sync"

	"github.com/sjrsjz/arc-gc/rc"
)

// node is the shared Traceable payload used across rc and collector
// tests: a simple graph node that can point at other nodes via Weak
// edges, plus an optional destructor hook so tests can observe when a
// payload was actually dropped.
type node struct {
	mu       sync.Mutex
	name     string
	edges    []*rc.Weak[*node]
	onDrop   func(name string)
	destroyed bool
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
	for _, e := range n.edges {
		queue.PushBack(e.Clone())
	}
}

func (n *node) Destroy() {
	n.mu.Lock()
	n.destroyed = true
	name := n.name
	onDrop := n.onDrop
	n.mu.Unlock()
	if onDrop != nil {
		onDrop(name)
	}
}
