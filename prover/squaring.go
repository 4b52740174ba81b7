package prover

import (
	"context"
	"fmt"
	"time"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/metrics"
)

// rateChunk is how many squarings are batched into one meter update.
const rateChunk = 1024

// track is one squaring target fed by the shared chain: it receives a
// checkpoint every plan.Interval() squarings and its final form after
// iterations squarings.
type track struct {
	iterations uint64
	plan       Plan
	store      CheckpointStore
	y          *classgroup.Form
	stats      *Stats
}

// squarer runs the sequential chain x, x², x⁴, ... for the longest track.
type squarer struct {
	group    Group
	progress ProgressFunc
	interval uint64
}

// run performs max(track.iterations) squarings of a copy of x. The context
// is checked once per squaring; on cancellation no track is completed.
func (s *squarer) run(ctx context.Context, x *classgroup.Form, tracks []*track) error {
	var total uint64
	for _, t := range tracks {
		total = max(total, t.iterations)
	}
	cur := x.Clone()
	var pending int64
	defer func() {
		metrics.Squarings.Add(pending)
		metrics.SquaringRate.Mark(pending)
	}()

	for i := uint64(0); i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w after %d squarings: %v", ErrCanceled, i, err)
		}
		for _, t := range tracks {
			if i >= t.iterations || i%t.plan.Interval() != 0 {
				continue
			}
			if err := t.checkpoint(cur); err != nil {
				return err
			}
		}

		s.group.Square(cur)

		done := i + 1
		for _, t := range tracks {
			if done == t.iterations {
				t.y = cur.Clone()
			}
		}
		if pending++; pending == rateChunk {
			metrics.Squarings.Add(pending)
			metrics.SquaringRate.Mark(pending)
			pending = 0
		}
		if s.progress != nil && shouldReport(done, total, s.interval) {
			s.progress(done)
		}
	}
	return nil
}

func (t *track) checkpoint(f *classgroup.Form) error {
	if t.stats == nil {
		return t.store.Append(f)
	}
	start := time.Now()
	err := t.store.Append(f)
	t.stats.CheckpointTime += time.Since(start)
	t.stats.CheckpointCalls++
	return err
}
