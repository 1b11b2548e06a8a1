// Package passes implements the capability-aware mapping passes.
//
// Every pass satisfies Pass and is run by the pipeline driver against one
// Network, one read-only capability snapshot and one Annotations side-table:
//
//	validate       structural invariants; gatekeeper for every later pass
//	partition      population → part assignment under neuron capacity
//	placement      per-part memory, synapse and fan-in/out estimates
//	routing        closed-form inter-part bandwidth estimate
//	timing         continuous delays → integer ticks (round half to even)
//	resource-check merged, ordered, classified violation report
//	quantizeN      scalar weights on a symmetric N-bit grid (N = 4, 8, 16)
//
// Capacity, routing and timing findings are values in reports, never
// errors. The only errors a pass returns are structural failures,
// fail-fast partition failures, missing predecessor reports and invalid
// pass parameters.
//
// Passes hold no mutable state and never log; they are safe to run from
// independent pipeline invocations concurrently.
package passes
