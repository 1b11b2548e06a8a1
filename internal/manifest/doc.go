// Package manifest loads CUE target manifests and flattens their
// capabilities into the ir.Capabilities snapshot the mapping pipeline
// reads.
//
// A manifest file defines a single top-level "target" struct:
//
//	target: {
//		name:   "loihi2"
//		vendor: "Intel"
//		capabilities: {
//			max_neurons_per_core: 8192
//			core_memory_kib:      192
//		}
//	}
//
// The embedded schema requires a non-empty name and vendor and every
// numeric capability to be positive. Unknown capability fields are
// accepted and ignored.
package manifest
