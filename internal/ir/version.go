package ir

// Version constants for the journal format and the engine.
const (
	// JournalVersion is the step record schema version.
	JournalVersion = "1"

	// EngineVersion is the guardloop engine version.
	EngineVersion = "0.1.0"
)
