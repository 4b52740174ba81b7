// Package prover computes Wesolowski proofs for the class group verifiable
// delay function. A proof is produced in one pass: the input form is
// squared T times while checkpoints are recorded, the result is optionally
// checked against a reference, and the proof element is assembled from the
// checkpoints.
//
// A Prover may be shared between goroutines. Each proving operation owns its
// group, forms and checkpoints, and reads process-wide Settings once when it
// starts.
package prover

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/log"
	"github.com/hoffmang9/WesoForge/metrics"
)

// Request describes one proving operation.
type Request struct {
	Challenge        []byte
	Input            []byte // encoded x
	DiscriminantBits int
	Iterations       uint64
	// Reference is the expected encoding of y. A non-empty Reference is
	// always compared. CheckReference demands a comparison, so an empty
	// Reference then fails validation.
	Reference      []byte
	CheckReference bool
	// ProgressInterval is the progress cadence in squarings; 0 disables
	// progress.
	ProgressInterval uint64
	Progress         ProgressFunc
}

// Result is a completed proof.
type Result struct {
	// Output is Y followed by Proof.
	Output      []byte
	Y           []byte
	Proof       []byte
	Diagnostics Diagnostics
}

// Prover runs proving operations.
type Prover struct {
	settings *Settings
	newGroup GroupFactory
	logger   *log.Logger

	mu        sync.Mutex
	lastPlan  *Plan
	lastStats *Stats
}

// Option configures a Prover.
type Option func(*Prover)

// WithSettings makes the prover snapshot s instead of DefaultSettings.
func WithSettings(s *Settings) Option {
	return func(p *Prover) { p.settings = s }
}

// WithGroupFactory replaces the class group constructor.
func WithGroupFactory(f GroupFactory) Option {
	return func(p *Prover) { p.newGroup = f }
}

// WithLogger sets the prover's logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Prover) { p.logger = l }
}

// New creates a Prover.
func New(opts ...Option) *Prover {
	p := &Prover{
		settings: DefaultSettings,
		newGroup: NewClassGroup,
		logger:   log.Default().Module("prover"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LastParameters returns the plan of the most recent operation that got
// past tuning. The second result is false if there was none.
func (p *Prover) LastParameters() (Plan, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPlan == nil {
		return Plan{}, false
	}
	return *p.lastPlan, true
}

// LastStats returns the stats of the most recent completed operation. The
// second result is false when that operation did not collect stats.
func (p *Prover) LastStats() (Stats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastStats == nil {
		return Stats{}, false
	}
	return *p.lastStats, true
}

func (p *Prover) recordPlan(plan Plan) {
	p.mu.Lock()
	p.lastPlan = &plan
	p.lastStats = nil
	p.mu.Unlock()
}

func (p *Prover) recordStats(s *Stats) {
	if s == nil {
		return
	}
	cp := *s
	p.mu.Lock()
	p.lastStats = &cp
	p.mu.Unlock()
}

// operation carries the state of one proving call through its stages.
type operation struct {
	cfg   Config
	stage Stage
	group Group
	x     *classgroup.Form
}

func (op *operation) fail(err error) error {
	return &ProveError{Stage: op.stage, Err: err}
}

// Prove runs the full state machine for req. On failure the returned error
// is a *ProveError wrapping one of the Err kinds and no partial output is
// returned.
func (p *Prover) Prove(ctx context.Context, req *Request) (res *Result, err error) {
	op := &operation{cfg: p.settings.Snapshot()}
	metrics.ProofsInFlight.Inc()
	timer := metrics.NewTimer(metrics.ProveTime)
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, op.fail(fmt.Errorf("%w: %v", ErrArithmetic, r))
		}
		metrics.ProofsInFlight.Dec()
		if err != nil {
			p.recordFailure(op, err)
			return
		}
		timer.Stop()
		metrics.ProofsCompleted.Inc()
	}()

	if err := op.validateInput(p.newGroup, req); err != nil {
		return nil, err
	}
	metrics.ProofsStarted.Inc()

	op.stage = StageTuning
	plan, store, spilled, err := op.tune(req.Iterations)
	if err != nil {
		return nil, op.fail(err)
	}
	defer store.Close()
	p.recordPlan(plan)
	p.logger.Debug("plan selected", "iterations", req.Iterations, "k", plan.K, "l", plan.L,
		"tuned", plan.Tuned, "spilled", spilled, "budget", op.cfg.MemoryBudget)

	diag := Diagnostics{Plan: plan, Spilled: spilled}
	if op.cfg.CollectStats {
		diag.Stats = new(Stats)
	}
	tr := &track{iterations: req.Iterations, plan: plan, store: store, stats: diag.Stats}

	op.stage = StageSquaring
	sq := &squarer{group: op.group, progress: req.Progress, interval: req.ProgressInterval}
	if err := sq.run(ctx, op.x, []*track{tr}); err != nil {
		return nil, op.fail(err)
	}

	check := req.CheckReference || len(req.Reference) > 0
	y, proof, err := op.finish(tr, check, req.Reference)
	if err != nil {
		return nil, err
	}
	op.stage = StageDone
	p.recordStats(diag.Stats)

	out := make([]byte, 0, len(y)+len(proof))
	out = append(append(out, y...), proof...)
	return &Result{Output: out, Y: y, Proof: proof, Diagnostics: diag}, nil
}

// ProveBytes is Prove with every failure collapsed to a nil result.
func (p *Prover) ProveBytes(ctx context.Context, req *Request) []byte {
	res, err := p.Prove(ctx, req)
	if err != nil {
		return nil
	}
	return res.Output
}

// validateInput rejects malformed requests before any group arithmetic,
// then builds the group and decodes x.
func (op *operation) validateInput(newGroup GroupFactory, req *Request) error {
	op.stage = StageValidatingInput
	switch {
	case req == nil:
		return op.fail(fmt.Errorf("%w: nil request", ErrInvalidInput))
	case len(req.Challenge) == 0:
		return op.fail(fmt.Errorf("%w: empty challenge", ErrInvalidInput))
	case len(req.Input) == 0:
		return op.fail(fmt.Errorf("%w: empty input element", ErrInvalidInput))
	case req.Iterations == 0:
		return op.fail(fmt.Errorf("%w: zero iterations", ErrInvalidInput))
	case req.DiscriminantBits <= 0:
		return op.fail(fmt.Errorf("%w: discriminant size %d", ErrInvalidInput, req.DiscriminantBits))
	case req.CheckReference && len(req.Reference) == 0:
		return op.fail(fmt.Errorf("%w: empty reference", ErrInvalidInput))
	}
	return op.setup(newGroup, req.Challenge, req.DiscriminantBits, req.Input)
}

func (op *operation) setup(newGroup GroupFactory, challenge []byte, bits int, input []byte) error {
	g, err := newGroup(challenge, bits)
	if err != nil {
		return op.fail(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	x, err := g.Decode(input)
	if err != nil {
		return op.fail(fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	op.group, op.x = g, x
	return nil
}

// tune picks the plan and checkpoint store for t squarings under the
// operation's memory budget.
func (op *operation) tune(t uint64) (Plan, CheckpointStore, bool, error) {
	formBytes := op.group.FormMemory()
	plan, fits := TunePlan(t, formBytes, op.cfg.MemoryBudget)
	if plan.Interval() == 0 {
		return plan, nil, false, ErrTuner
	}
	if !fits && op.cfg.SpillDir != "" {
		plan = SpillPlan(t, formBytes, op.cfg.MemoryBudget)
		store, err := newSpillStore(op.group, op.cfg.SpillDir)
		if err != nil {
			return plan, nil, false, err
		}
		return plan, store, true, nil
	}
	if plan.Tuned {
		metrics.PlansRetuned.Inc()
	}
	return plan, newMemStore(plan.Checkpoints(t)), false, nil
}

// finish validates y against the reference, builds the proof and encodes
// both.
func (op *operation) finish(tr *track, check bool, ref []byte) ([]byte, []byte, error) {
	y, err := op.group.Encode(tr.y)
	if err != nil || len(y) == 0 {
		op.stage = StageEncoding
		return nil, nil, op.fail(fmt.Errorf("%w: y: %v", ErrEncodingFault, err))
	}
	if check {
		op.stage = StageValidatingResult
		if err := ValidateResult(y, ref); err != nil {
			return nil, nil, op.fail(err)
		}
	}

	op.stage = StageProving
	proof, stage, err := proveTrack(op.group, op.x, tr)
	if err != nil {
		op.stage = stage
		return nil, nil, op.fail(err)
	}
	return y, proof, nil
}

// proveTrack builds and encodes the proof for a completed track. It touches
// no shared state, so tracks of a batch are proved concurrently. On error
// it reports the stage that failed.
func proveTrack(g Group, x *classgroup.Form, tr *track) ([]byte, Stage, error) {
	timer := metrics.NewTimer(metrics.ProofGenerationTime)
	b, err := ChallengePrime(g, x, tr.y)
	if err != nil {
		return nil, StageProving, err
	}
	pi, err := GenerateProof(g, tr.store, tr.iterations, tr.plan, b, tr.stats)
	if err != nil {
		return nil, StageProving, err
	}
	timer.Stop()

	proof, err := g.Encode(pi)
	if err != nil || len(proof) == 0 {
		return nil, StageEncoding, fmt.Errorf("%w: proof: %v", ErrEncodingFault, err)
	}
	return proof, StageEncoding, nil
}

// recordFailure counts err under its kind. Requests rejected before they
// started count as rejected, not failed.
func (p *Prover) recordFailure(op *operation, err error) {
	var pe *ProveError
	stage := op.stage
	if errors.As(err, &pe) {
		stage = pe.Stage
	}
	if stage == StageValidatingInput {
		metrics.ProofsRejected.Inc()
	} else {
		metrics.ProofsFailed.Inc()
	}
	switch kindOf(err) {
	case ErrInvalidInput:
		metrics.FailInvalidInput.Inc()
	case ErrResultMismatch:
		metrics.FailResultMismatch.Inc()
	case ErrEncodingFault:
		metrics.FailEncoding.Inc()
	case ErrArithmetic:
		metrics.FailArithmetic.Inc()
	case ErrCanceled:
		metrics.FailCanceled.Inc()
	case ErrTuner:
		metrics.FailTuner.Inc()
	case ErrCheckpointStore:
		metrics.FailStorage.Inc()
	}
	op.stage = StageFailed
	p.logger.Warn("proof failed", "stage", stage.String(), "err", err)
}
