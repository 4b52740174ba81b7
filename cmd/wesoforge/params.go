package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/prover"
)

var paramsCommand = &cli.Command{
	Name:  "params",
	Usage: "Print the (k, l) plan chosen for T under a memory budget",
	Flags: []cli.Flag{iterationsFlag, bitsFlag, memoryFlag},
	Action: func(c *cli.Context) error {
		iters := c.Uint64(iterationsFlag.Name)
		if iters == 0 {
			return errors.New("iterations must be positive")
		}
		bits := c.Int(bitsFlag.Name)
		if bits < classgroup.MinDiscriminantBits {
			return fmt.Errorf("bits must be at least %d", classgroup.MinDiscriminantBits)
		}
		formBytes := classgroup.FormMemoryBits(bits)
		budget := c.Uint64(memoryFlag.Name)

		plan, fits := prover.TunePlan(iters, formBytes, budget)
		w := c.App.Writer
		fmt.Fprintf(w, "k=%d l=%d tuned=%t fits=%t\n", plan.K, plan.L, plan.Tuned, fits)
		fmt.Fprintf(w, "checkpoints=%d memory=%d form_bytes=%d\n",
			plan.Checkpoints(iters), plan.Memory(iters, formBytes), formBytes)
		if !fits {
			sp := prover.SpillPlan(iters, formBytes, budget)
			fmt.Fprintf(w, "spill plan: k=%d l=%d\n", sp.K, sp.L)
		}
		return nil
	},
}
