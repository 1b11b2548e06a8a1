// Package graphio reads network graph files and writes per-pass dumps of
// the annotated network.
//
// Graph files are YAML (.yaml, .yml) or JSON (.json). Decoding is strict:
// unknown fields are rejected so typos surface as errors instead of being
// silently ignored.
package graphio
