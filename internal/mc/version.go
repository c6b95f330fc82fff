package mc

// Version constants for persisted formats and the runtime.
const (
	// CheckpointFormatVersion is the checkpoint record format version.
	// Loading a checkpoint with any other version is a configuration error.
	CheckpointFormatVersion = 1

	// ResultFormatVersion is the result artifact format version.
	ResultFormatVersion = 1

	// RuntimeVersion is the mcjob runtime version.
	RuntimeVersion = "0.1.0"
)
