// Package ir provides the graph model and pass-result types for neuromap.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Passes never mutate Population or Projection identity or structure.
//     Everything a pass produces goes into the typed Annotations side-table.
//   - Capability fields carry an explicit "absent" state (Opt) that is
//     distinct from zero.
//   - Reports are produced once per pass invocation and only read afterwards.
//   - All JSON and YAML tags use snake_case.
package ir
