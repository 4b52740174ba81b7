package prover

import (
	"fmt"
	"math/big"
	"time"

	"github.com/hoffmang9/WesoForge/classgroup"
)

// Challenge prime parameters: B has exactly 264 bits.
const (
	challengeBits = 264
	challengeTop  = challengeBits - 1
)

// ChallengePrime returns the Fiat-Shamir prime B binding x and y.
func ChallengePrime(g Group, x, y *classgroup.Form) (*big.Int, error) {
	xs, err := g.Encode(x)
	if err != nil {
		return nil, fmt.Errorf("%w: encode x: %v", ErrEncodingFault, err)
	}
	ys, err := g.Encode(y)
	if err != nil {
		return nil, fmt.Errorf("%w: encode y: %v", ErrEncodingFault, err)
	}
	seed := make([]byte, 0, len(xs)+len(ys))
	seed = append(append(seed, xs...), ys...)
	return classgroup.HashPrime(seed, challengeBits, []int{challengeTop}), nil
}

// GetBlock returns k-bit digit p of floor(2^t / b), counting from the least
// significant digit: floor(2^k · (2^(t-k(p+1)) mod b) / b). It requires
// k(p+1) <= t and k < 64.
func GetBlock(p, k, t uint64, b *big.Int) uint64 {
	e := new(big.Int).SetUint64(t - k*(p+1))
	r := new(big.Int).Exp(bigTwo, e, b)
	r.Lsh(r, uint(k))
	r.Quo(r, b)
	return r.Uint64()
}

var bigTwo = big.NewInt(2)

// GenerateProof computes π = x^floor(2^t / b) from the checkpoints of a
// chain of t squarings of x taken under plan. Digit p of the quotient
// multiplies checkpoint p/L into bucket digit, and each of the L passes
// folds the 2^K buckets into the accumulator with a split exponent.
// Every intermediate form is reduced.
func GenerateProof(g Group, store CheckpointStore, t uint64, plan Plan, b *big.Int, stats *Stats) (*classgroup.Form, error) {
	k, l := plan.K, plan.L
	if k == 0 || l == 0 || k >= 64 {
		return nil, fmt.Errorf("%w: %s", ErrTuner, plan)
	}
	if n := plan.Checkpoints(t); store.Len() != n {
		return nil, fmt.Errorf("%w: have %d checkpoints, plan needs %d", ErrCheckpointStore, store.Len(), n)
	}
	var start time.Time
	if stats != nil {
		start = time.Now()
	}

	k1 := k / 2
	k0 := k - k1
	buckets := uint64(1) << k
	segments := plan.Checkpoints(t)

	acc := g.Identity()
	ys := make([]*classgroup.Form, buckets)
	for j := int64(l) - 1; j >= 0; j-- {
		for n := uint64(0); n < k; n++ {
			g.Square(acc)
		}

		var bucketStart time.Time
		if stats != nil {
			bucketStart = time.Now()
		}
		for i := range ys {
			ys[i] = g.Identity()
		}
		for i := uint64(0); i < segments; i++ {
			p := i*l + uint64(j)
			if t < k*(p+1) {
				continue
			}
			c, err := store.At(i)
			if err != nil {
				return nil, err
			}
			d := GetBlock(p, k, t, b)
			ys[d] = g.Multiply(ys[d], c)
			if stats != nil {
				stats.BucketUpdates++
			}
		}
		if stats != nil {
			stats.CheckpointEventTime += time.Since(bucketStart)
		}

		for b1 := uint64(0); b1 < 1<<k1; b1++ {
			z := g.Identity()
			for b0 := uint64(0); b0 < 1<<k0; b0++ {
				z = g.Multiply(z, ys[b1<<k0+b0])
			}
			z = g.Pow(z, new(big.Int).SetUint64(b1<<k0))
			acc = g.Multiply(acc, z)
		}
		for b0 := uint64(0); b0 < 1<<k0; b0++ {
			z := g.Identity()
			for b1 := uint64(0); b1 < 1<<k1; b1++ {
				z = g.Multiply(z, ys[b1<<k0+b0])
			}
			z = g.Pow(z, new(big.Int).SetUint64(b0))
			acc = g.Multiply(acc, z)
		}
	}
	if stats != nil {
		stats.FinalizeTime += time.Since(start)
	}
	return acc, nil
}
