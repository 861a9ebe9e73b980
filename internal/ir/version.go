package ir

// Version constants for the persisted model and the solver.
const (
	// IRVersion is the schema version of exported documents.
	IRVersion = "1"

	// EngineVersion is the shopsched solver version.
	EngineVersion = "0.1.0"
)
