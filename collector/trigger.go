package collector

// shouldCollectLocked reports whether a collection should run now. It
// must be called with c.mu held.
//
// The percentage trigger fires once attachCount (registrations since
// the last collection) reaches max(1, object_count*percentage/100): a
// fast-growing heap collects proportionally more often than a large,
// stable one. The memory trigger, when configured, fires independently
// whenever the estimated allocated-byte total reaches the threshold,
// regardless of attach churn.
func (c *Collector[T]) shouldCollectLocked() bool {
	n := len(c.refs)
	if n == 0 {
		return false
	}
	if c.memoryThreshold != nil && c.allocatedMemory >= *c.memoryThreshold {
		return true
	}
	threshold := (n * c.percentage) / 100
	if threshold < 1 {
		threshold = 1
	}
	return c.attachCount >= threshold
}

// Collect runs one mark-sweep pass over the heap set, synchronously.
// It is safe to call directly even when no trigger has fired; Attach
// calls it automatically when the heuristic warrants it.
func (c *Collector[T]) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked()
}

func (c *Collector[T]) collectLocked() {
	if len(c.refs) == 0 {
		c.attachCount = 0
		return
	}

	marked := make(map[uintptr]bool, len(c.refs))
	for _, r := range c.refs {
		marked[identityOf(r)] = false
	}

	queue := newRootQueue(c.refs)
	for {
		w, ok := queue.PopFront()
		if !ok {
			break
		}
		strong, upgraded := w.Upgrade()
		w.Close()
		if !upgraded {
			continue
		}

		ptr := identityOf(strong)
		if marked[ptr] {
			strong.Close()
			continue
		}
		marked[ptr] = true
		strong.AsRef().Collect(queue)
		strong.Close()
	}

	survivors := c.refs[:0:0]
	for _, r := range c.refs {
		if marked[identityOf(r)] {
			survivors = append(survivors, r)
			continue
		}
		adjustDetached(r)
		c.allocatedMemory = saturatingSub(c.allocatedMemory, c.objectSize())
		r.Close()
	}
	c.refs = survivors
	c.attachCount = 0

	if c.metrics != nil {
		c.metrics.collections.Inc()
	}
	c.refreshMetricsLocked()
}
