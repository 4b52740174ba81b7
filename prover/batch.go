package prover

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hoffmang9/WesoForge/metrics"
)

// Job is one iteration target of a batch.
type Job struct {
	Iterations uint64
	// Reference is the expected encoding of y for this target. It is
	// required.
	Reference []byte
}

// BatchRequest proves several iteration targets over the same challenge
// and input with a single squaring chain.
type BatchRequest struct {
	Challenge        []byte
	Input            []byte
	DiscriminantBits int
	Jobs             []Job
	// ProgressInterval and Progress count squarings of the shared chain,
	// which runs to the largest target.
	ProgressInterval uint64
	Progress         ProgressFunc
	// Parallelism bounds concurrent proof construction. Zero means
	// GOMAXPROCS.
	Parallelism int
}

// ProveBatch squares once up to the largest target, checks every job's y
// against its reference, then builds the proofs concurrently. Results are
// in job order. The batch fails as a whole if any job fails.
func (p *Prover) ProveBatch(ctx context.Context, req *BatchRequest) (results []*Result, err error) {
	op := &operation{cfg: p.settings.Snapshot()}
	metrics.ProofsInFlight.Inc()
	timer := metrics.NewTimer(metrics.ProveTime)
	var tracks []*track
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, op.fail(fmt.Errorf("%w: %v", ErrArithmetic, r))
		}
		for _, tr := range tracks {
			tr.store.Close()
		}
		metrics.ProofsInFlight.Dec()
		if err != nil {
			p.recordFailure(op, err)
			return
		}
		timer.Stop()
		metrics.ProofsCompleted.Add(int64(len(results)))
		metrics.BatchesCompleted.Inc()
	}()

	if err := op.validateBatch(p.newGroup, req); err != nil {
		return nil, err
	}
	metrics.ProofsStarted.Add(int64(len(req.Jobs)))

	op.stage = StageTuning
	diags := make([]Diagnostics, len(req.Jobs))
	for i, job := range req.Jobs {
		plan, store, spilled, err := op.tune(job.Iterations)
		if err != nil {
			return nil, op.fail(fmt.Errorf("job %d: %w", i, err))
		}
		diags[i] = Diagnostics{Plan: plan, Spilled: spilled}
		if op.cfg.CollectStats {
			diags[i].Stats = new(Stats)
		}
		tracks = append(tracks, &track{iterations: job.Iterations, plan: plan, store: store, stats: diags[i].Stats})
	}
	p.recordPlan(diags[len(diags)-1].Plan)
	p.logger.Debug("batch planned", "jobs", len(tracks), "budget", op.cfg.MemoryBudget)

	op.stage = StageSquaring
	sq := &squarer{group: op.group, progress: req.Progress, interval: req.ProgressInterval}
	if err := sq.run(ctx, op.x, tracks); err != nil {
		return nil, op.fail(err)
	}

	op.stage = StageValidatingResult
	ys := make([][]byte, len(tracks))
	for i, tr := range tracks {
		y, err := op.group.Encode(tr.y)
		if err != nil || len(y) == 0 {
			op.stage = StageEncoding
			return nil, op.fail(fmt.Errorf("job %d: %w: y: %v", i, ErrEncodingFault, err))
		}
		if err := ValidateResult(y, req.Jobs[i].Reference); err != nil {
			return nil, op.fail(fmt.Errorf("job %d: %w", i, err))
		}
		ys[i] = y
	}

	op.stage = StageProving
	proofs := make([][]byte, len(tracks))
	eg, egctx := errgroup.WithContext(ctx)
	limit := req.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	eg.SetLimit(limit)
	for i, tr := range tracks {
		i, tr := i, tr
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrArithmetic, r)
				}
			}()
			if err := egctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrCanceled, err)
			}
			proof, _, err := proveTrack(op.group, op.x, tr)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			proofs[i] = proof
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, op.fail(err)
	}

	op.stage = StageDone
	results = make([]*Result, len(tracks))
	for i := range tracks {
		out := make([]byte, 0, len(ys[i])+len(proofs[i]))
		out = append(append(out, ys[i]...), proofs[i]...)
		results[i] = &Result{Output: out, Y: ys[i], Proof: proofs[i], Diagnostics: diags[i]}
	}
	p.recordStats(diags[len(diags)-1].Stats)
	return results, nil
}

func (op *operation) validateBatch(newGroup GroupFactory, req *BatchRequest) error {
	op.stage = StageValidatingInput
	switch {
	case req == nil:
		return op.fail(fmt.Errorf("%w: nil request", ErrInvalidInput))
	case len(req.Challenge) == 0:
		return op.fail(fmt.Errorf("%w: empty challenge", ErrInvalidInput))
	case len(req.Input) == 0:
		return op.fail(fmt.Errorf("%w: empty input element", ErrInvalidInput))
	case req.DiscriminantBits <= 0:
		return op.fail(fmt.Errorf("%w: discriminant size %d", ErrInvalidInput, req.DiscriminantBits))
	case len(req.Jobs) == 0:
		return op.fail(fmt.Errorf("%w: no jobs", ErrInvalidInput))
	}
	for i, job := range req.Jobs {
		if job.Iterations == 0 {
			return op.fail(fmt.Errorf("%w: job %d: zero iterations", ErrInvalidInput, i))
		}
		if len(job.Reference) == 0 {
			return op.fail(fmt.Errorf("%w: job %d: empty reference", ErrInvalidInput, i))
		}
	}
	return op.setup(newGroup, req.Challenge, req.DiscriminantBits, req.Input)
}
