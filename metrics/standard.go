package metrics

// Prover metrics. They live in DefaultRegistry so the prover and the
// command line share them without passing a registry around.
var (
	// ProofsStarted counts Prove calls that passed input validation.
	ProofsStarted = DefaultRegistry.Counter("prover.proofs_started")
	// ProofsCompleted counts proofs returned to the caller.
	ProofsCompleted = DefaultRegistry.Counter("prover.proofs_completed")
	// ProofsFailed counts started Prove calls that returned an error.
	ProofsFailed = DefaultRegistry.Counter("prover.proofs_failed")
	// ProofsRejected counts requests refused during input validation.
	ProofsRejected = DefaultRegistry.Counter("prover.proofs_rejected")
	// ProofsInFlight tracks proofs currently being computed.
	ProofsInFlight = DefaultRegistry.Gauge("prover.in_flight")
	// BatchesCompleted counts batch runs that produced every proof.
	BatchesCompleted = DefaultRegistry.Counter("prover.batches_completed")

	FailInvalidInput   = DefaultRegistry.Counter("prover.failures.invalid_input")
	FailResultMismatch = DefaultRegistry.Counter("prover.failures.result_mismatch")
	FailEncoding       = DefaultRegistry.Counter("prover.failures.encoding")
	FailArithmetic     = DefaultRegistry.Counter("prover.failures.arithmetic")
	FailCanceled       = DefaultRegistry.Counter("prover.failures.canceled")
	FailTuner          = DefaultRegistry.Counter("prover.failures.tuner")
	FailStorage        = DefaultRegistry.Counter("prover.failures.storage")

	// Squarings counts class group squarings in the main chain.
	Squarings = DefaultRegistry.Counter("prover.squarings")
	// SquaringRate tracks squarings per second.
	SquaringRate = DefaultRegistry.Meter("prover.squaring_rate")
	// CheckpointsSpilled counts checkpoints written to the on-disk store.
	CheckpointsSpilled = DefaultRegistry.Counter("prover.checkpoints_spilled")
	// PlansRetuned counts plans narrowed to fit a memory budget.
	PlansRetuned = DefaultRegistry.Counter("prover.plans_retuned")

	// ProveTime records end-to-end Prove duration in milliseconds.
	ProveTime = DefaultRegistry.Histogram("prover.prove_ms")
	// ProofGenerationTime records the proof phase alone in milliseconds.
	ProofGenerationTime = DefaultRegistry.Histogram("prover.proof_generation_ms")
)
