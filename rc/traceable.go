package rc

// Traceable is the capability every payload managed by a
// collector.Collector must implement. Collect must push a Weak handle
// for every Cell this payload directly references onto queue.
//
// Collect must never create or retain Strong handles to other
// cells — only Weak ones. A payload that logically owns a child should
// store a Weak reference to it and keep the owning Strong handle
// rooted outside the object graph (for example, by registering it with
// a Collector via Attach). Retaining a raw Strong handle inside a
// Traceable payload as part of a cycle will leak: the collector reads
// every outgoing edge as a weak observation, and a Strong edge it
// cannot see will keep the cycle alive forever.
type Traceable[T Traceable[T]] interface {
	Collect(queue *WeakQueue[T])
}
