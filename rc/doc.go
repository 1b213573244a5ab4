// Package rc implements a hybrid strong/weak smart pointer pair over a
// shared control block (a "cell"). Strong handles own the payload:
// when the last one is closed, the payload is destroyed deterministically.
// Weak handles observe without owning, and can race-free "upgrade" to a
// Strong handle while the payload is still live.
//
// Plain reference counting cannot reclaim cycles. Payloads that form a
// cycle must hold weak references to each other and be registered with
// a collector.Collector, which periodically traces the object graph
// and breaks cycles the strong/weak pair alone cannot free. See the
// collector package.
package rc
