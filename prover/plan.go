package prover

import (
	"fmt"
	"math"
)

const logMemory = 23.25349666

// Plan is the (k, l) shape of a proof: checkpoints are taken every K·L
// squarings and the proof is built from 2^K buckets in L passes.
type Plan struct {
	K, L uint64
	// Tuned is set when the plan was narrowed to fit a memory budget.
	Tuned bool
}

// Interval returns the checkpoint spacing K·L.
func (p Plan) Interval() uint64 { return p.K * p.L }

// Checkpoints returns the number of checkpoints the plan takes over t
// squarings.
func (p Plan) Checkpoints(t uint64) uint64 {
	kl := p.Interval()
	if kl == 0 {
		return 0
	}
	return (t + kl - 1) / kl
}

// Memory returns the bytes needed for the plan's checkpoints and buckets.
func (p Plan) Memory(t, formBytes uint64) uint64 {
	return (p.Checkpoints(t) + 1<<p.K) * formBytes
}

func (p Plan) String() string {
	return fmt.Sprintf("k=%d l=%d tuned=%t", p.K, p.L, p.Tuned)
}

// ApproximateParameters picks the default plan for t squarings. The result
// depends only on t, so independent provers agree on it. Both parameters
// are at least 1 and K·L never exceeds t.
func ApproximateParameters(t uint64) Plan {
	if t == 0 {
		return Plan{K: 1, L: 1}
	}
	l := 1.0
	if math.Log2(float64(t))-logMemory > 0.000001 {
		l = math.Ceil(math.Pow(2, logMemory-20))
	}
	inter := float64(t) * 0.6931471 / (2 * l)
	k := math.Round(math.Log(inter) - math.Log(math.Log(inter)) + 0.25)
	if math.IsNaN(k) || k < 1 {
		k = 1
	}
	p := Plan{K: uint64(k), L: uint64(l)}
	if p.K*p.L > t {
		p.K = max(t/p.L, 1)
		if p.K*p.L > t {
			p.L = 1
		}
	}
	return p
}

// TunePlan returns the plan for t squarings under a memory budget. With a
// zero budget it is ApproximateParameters. Otherwise it keeps the bucket
// width K as large as possible and widens L until checkpoints and buckets
// fit. The second result is false when even K = 1, L = t exceeds the
// budget; the plan returned then is that most compact one.
func TunePlan(t, formBytes, budget uint64) (Plan, bool) {
	base := ApproximateParameters(t)
	if budget == 0 || formBytes == 0 || base.Memory(t, formBytes) <= budget {
		return base, true
	}
	slots := budget / formBytes
	for k := base.K; k >= 1; k-- {
		if slots <= 1<<k {
			continue
		}
		avail := slots - 1<<k
		l := max(base.L, (t+k*avail-1)/(k*avail))
		if k*l > t {
			continue
		}
		return Plan{K: k, L: l, Tuned: true}, true
	}
	return Plan{K: 1, L: t, Tuned: true}, false
}

// SpillPlan returns the plan used when checkpoints live on disk: the
// default L, with K shrunk until the in-memory buckets fit the budget.
func SpillPlan(t, formBytes, budget uint64) Plan {
	p := ApproximateParameters(t)
	for p.K > 1 && (1<<p.K)*formBytes > budget {
		p.K--
		p.Tuned = true
	}
	return p
}
