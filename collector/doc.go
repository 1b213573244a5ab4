// Package collector implements the tracing half of the hybrid memory
// manager: a Collector[T] registers a mutable set of rc.Strong[T]
// handles as a heap, decides heuristically when to run a mark-sweep
// cycle, and breaks reference cycles that rc's plain strong/weak
// counting cannot free on its own.
//
// A registered cell is a root if, at the moment a cycle starts, its
// strong count exceeds the number of Collector registrations holding
// it — the excess implies some handle outside the heap set (an
// application stack, another heap set) still reaches it. Tracing walks
// every root's Traceable.Collect edges breadth-first over Weak
// handles, never Strong ones, so the walk itself never perturbs
// liveness. Anything left unmarked after the walk is swept: removed
// from the heap set, which drops the collector's own strong reference
// and, if that was the last one, the payload.
package collector
