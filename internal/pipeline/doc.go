// Package pipeline runs an ordered list of mapping passes over one network.
//
// The registry of available passes is an explicit value the caller builds
// (DefaultRegistry returns a fresh one) and hands to New. There is no
// package-level mutable state, so independent drivers may run concurrently.
//
// A driver run is single-threaded. Each pass reads the network, the
// capability snapshot and the reports of earlier passes, and leaves exactly
// one report in the run's Annotations side-table.
//
// Abort conditions:
//   - the validate report is not valid (StructuralError)
//   - fail-fast partitioning hits a population larger than a core
//     (PartitionError)
//   - a partition plan is not total (InternalInvariantError)
//
// Capacity, routing and timing findings never abort a run. They are
// collected as violations and classified by the resource-check pass.
package pipeline
