package ir

// Version constants for the IR schema and the mapping pipeline.
const (
	// IRVersion is the graph IR schema version.
	IRVersion = "1"

	// CompilerVersion is the neuromap pipeline version.
	CompilerVersion = "0.1.0"
)
