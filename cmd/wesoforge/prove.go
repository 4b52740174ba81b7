package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/log"
	"github.com/hoffmang9/WesoForge/prover"
)

var (
	challengeFlag = &cli.StringFlag{
		Name:     "challenge",
		Usage:    "Challenge bytes (hex)",
		Required: true,
		EnvVars:  []string{"WESOFORGE_CHALLENGE"},
	}
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "Encoded input form x (hex); defaults to the generator (2, 1, c)",
	}
	bitsFlag = &cli.IntFlag{
		Name:    "bits",
		Usage:   "Discriminant size in bits",
		Value:   1024,
		EnvVars: []string{"WESOFORGE_DISCRIMINANT_BITS"},
	}
	iterationsFlag = &cli.Uint64Flag{
		Name:     "iterations",
		Aliases:  []string{"t"},
		Usage:    "Number of squarings T",
		Required: true,
	}
	referenceFlag = &cli.StringFlag{
		Name:  "reference",
		Usage: "Expected encoded y (hex); the proof is skipped when it differs",
	}
	memoryFlag = &cli.Uint64Flag{
		Name:    "memory",
		Usage:   "Checkpoint memory budget in bytes (0 = unbounded)",
		EnvVars: []string{"WESOFORGE_MEMORY_BUDGET"},
	}
	spillDirFlag = &cli.StringFlag{
		Name:    "spill.dir",
		Usage:   "Directory for on-disk checkpoints when the budget cannot be met",
		EnvVars: []string{"WESOFORGE_SPILL_DIR"},
	}
	statsFlag = &cli.BoolFlag{
		Name:    "stats",
		Usage:   "Collect and print proving statistics",
		EnvVars: []string{"WESOFORGE_STATS"},
	}
	progressFlag = &cli.Uint64Flag{
		Name:  "progress",
		Usage: "Number of progress updates per proof (0 = none)",
		Value: prover.DefaultProgressSteps,
	}
)

var proveCommand = &cli.Command{
	Name:  "prove",
	Usage: "Compute y = x^(2^T) and its Wesolowski proof",
	Flags: []cli.Flag{
		challengeFlag, inputFlag, bitsFlag, iterationsFlag, referenceFlag,
		memoryFlag, spillDirFlag, statsFlag, progressFlag,
	},
	Action: proveAction,
}

func proveAction(c *cli.Context) error {
	if err := applySettings(c); err != nil {
		return err
	}
	challenge, err := parseHex(c.String(challengeFlag.Name))
	if err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	bits := c.Int(bitsFlag.Name)
	input, err := inputForm(c.String(inputFlag.Name), challenge, bits)
	if err != nil {
		return err
	}

	iters := c.Uint64(iterationsFlag.Name)
	req := &prover.Request{
		Challenge:        challenge,
		Input:            input,
		DiscriminantBits: bits,
		Iterations:       iters,
		ProgressInterval: prover.ProgressInterval(iters, c.Uint64(progressFlag.Name)),
		Progress: func(done uint64) {
			log.Info("squaring", "done", done, "total", iters)
		},
	}
	if ref := c.String(referenceFlag.Name); ref != "" {
		if req.Reference, err = parseHex(ref); err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		req.CheckReference = true
	}

	res, err := prover.New().Prove(c.Context, req)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "y:     %s\n", hexutil.Encode(res.Y))
	fmt.Fprintf(w, "proof: %s\n", hexutil.Encode(res.Proof))
	fmt.Fprintf(w, "plan:  %s spilled=%t\n", res.Diagnostics.Plan, res.Diagnostics.Spilled)
	if s := res.Diagnostics.Stats; s != nil {
		fmt.Fprintf(w, "stats: checkpoint=%s buckets=%s finalize=%s checkpoints=%d bucket_updates=%d\n",
			s.CheckpointTime, s.CheckpointEventTime, s.FinalizeTime, s.CheckpointCalls, s.BucketUpdates)
	}
	return nil
}

// applySettings copies the budget flags into the process-wide settings.
func applySettings(c *cli.Context) error {
	cfg := prover.Config{
		MemoryBudget: c.Uint64(memoryFlag.Name),
		CollectStats: c.Bool(statsFlag.Name),
		SpillDir:     c.String(spillDirFlag.Name),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	prover.DefaultSettings.SetMemoryBudget(cfg.MemoryBudget)
	prover.DefaultSettings.SetStatsEnabled(cfg.CollectStats)
	prover.DefaultSettings.SetSpillDir(cfg.SpillDir)
	return nil
}

// inputForm returns the encoded x: the given hex, or the group generator.
func inputForm(hexInput string, challenge []byte, bits int) ([]byte, error) {
	if hexInput != "" {
		b, err := parseHex(hexInput)
		if err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
		return b, nil
	}
	g, err := classgroup.New(challenge, bits)
	if err != nil {
		return nil, err
	}
	return g.Encode(g.Generator())
}

// parseHex decodes a hex string with or without the 0x prefix.
func parseHex(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty hex string")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
