package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/log"
	"github.com/hoffmang9/WesoForge/prover"
)

var benchChallenge = []byte("wesoforge benchmark challenge")

const warmupIterations = 1000

var (
	benchIterationsFlag = &cli.Uint64Flag{
		Name:  "iterations",
		Usage: "Squarings per proof",
		Value: 100_000,
	}
	parallelFlag = &cli.IntFlag{
		Name:    "parallel",
		Usage:   "Number of proofs computed concurrently",
		Value:   1,
		EnvVars: []string{"WESOFORGE_PARALLEL"},
	}
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Benchmark mode: proof (independent proofs) or group (one shared chain, several targets)",
		Value: "proof",
	}
	jobsFlag = &cli.IntFlag{
		Name:  "jobs",
		Usage: "Targets per chain in group mode",
		Value: 3,
	}
)

var benchCommand = &cli.Command{
	Name:  "bench",
	Usage: "Measure proving throughput on a fixed challenge",
	Flags: []cli.Flag{
		benchIterationsFlag, bitsFlag, parallelFlag, modeFlag, jobsFlag,
		memoryFlag, spillDirFlag, statsFlag,
	},
	Action: benchAction,
}

// benchResult is the outcome of one benchmark run.
type benchResult struct {
	proofs     int
	iterations uint64 // squarings performed across all workers
	elapsed    time.Duration
}

func (r benchResult) rate() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.iterations) / r.elapsed.Seconds()
}

func benchAction(c *cli.Context) error {
	if err := applySettings(c); err != nil {
		return err
	}
	iters := c.Uint64(benchIterationsFlag.Name)
	bits := c.Int(bitsFlag.Name)
	workers := c.Int(parallelFlag.Name)
	if iters == 0 || workers < 1 {
		return errors.New("iterations and parallel must be positive")
	}
	input, err := inputForm("", benchChallenge, bits)
	if err != nil {
		return err
	}
	p := prover.New()

	log.Info("warming up", "iterations", warmupIterations, "bits", bits)
	warm := &prover.Request{Challenge: benchChallenge, Input: input, DiscriminantBits: bits, Iterations: warmupIterations}
	if _, err := p.Prove(c.Context, warm); err != nil {
		return fmt.Errorf("warm-up: %w", err)
	}

	var res benchResult
	switch mode := c.String(modeFlag.Name); mode {
	case "proof":
		res, err = benchProofs(c.Context, p, input, bits, iters, workers)
	case "group":
		res, err = benchGroup(c.Context, p, input, bits, iters, workers, c.Int(jobsFlag.Name))
	default:
		return fmt.Errorf("unknown bench mode %q", mode)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "proofs=%d squarings=%d elapsed=%s rate=%.0f it/s\n",
		res.proofs, res.iterations, res.elapsed.Round(time.Millisecond), res.rate())
	if plan, ok := p.LastParameters(); ok {
		fmt.Fprintf(c.App.Writer, "plan: %s\n", plan)
	}
	return nil
}

// benchProofs runs one independent proof per worker.
func benchProofs(ctx context.Context, p *prover.Prover, input []byte, bits int, iters uint64, workers int) (benchResult, error) {
	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			_, err := p.Prove(ctx, &prover.Request{
				Challenge:        benchChallenge,
				Input:            input,
				DiscriminantBits: bits,
				Iterations:       iters,
			})
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return benchResult{}, err
	}
	return benchResult{
		proofs:     workers,
		iterations: iters * uint64(workers),
		elapsed:    time.Since(start),
	}, nil
}

// benchGroup runs one batch per worker, each proving jobs evenly spaced
// targets up to iters. References are computed before the clock starts.
func benchGroup(ctx context.Context, p *prover.Prover, input []byte, bits int, iters uint64, workers, jobs int) (benchResult, error) {
	if jobs < 1 || uint64(jobs) > iters {
		return benchResult{}, fmt.Errorf("jobs must be between 1 and %d", iters)
	}
	req, err := groupRequest(input, bits, iters, jobs)
	if err != nil {
		return benchResult{}, err
	}

	start := time.Now()
	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			_, err := p.ProveBatch(ctx, req)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return benchResult{}, err
	}
	return benchResult{
		proofs:     workers * jobs,
		iterations: iters * uint64(workers),
		elapsed:    time.Since(start),
	}, nil
}

func groupRequest(input []byte, bits int, iters uint64, jobs int) (*prover.BatchRequest, error) {
	g, err := classgroup.New(benchChallenge, bits)
	if err != nil {
		return nil, err
	}
	x, err := g.Decode(input)
	if err != nil {
		return nil, err
	}
	req := &prover.BatchRequest{Challenge: benchChallenge, Input: input, DiscriminantBits: bits}
	var done uint64
	for i := 1; i <= jobs; i++ {
		target := iters * uint64(i) / uint64(jobs)
		for ; done < target; done++ {
			g.Square(x)
		}
		ref, err := g.Encode(x)
		if err != nil {
			return nil, err
		}
		req.Jobs = append(req.Jobs, prover.Job{Iterations: target, Reference: ref})
	}
	return req, nil
}
