package prover

import "time"

// Stats are per-operation timings and counters, collected only when the
// operation's Config enables them.
type Stats struct {
	CheckpointTime      time.Duration // storing checkpoints
	CheckpointEventTime time.Duration // distributing checkpoints into buckets
	FinalizeTime        time.Duration // building the proof
	CheckpointCalls     uint64
	BucketUpdates       uint64
}

// Diagnostics describe how one proof was computed.
type Diagnostics struct {
	Plan Plan
	// Stats is nil when collection was disabled.
	Stats *Stats
	// Spilled reports that checkpoints were kept on disk.
	Spilled bool
}
