package classgroup

import (
	"math/big"

	"github.com/minio/sha256-simd"
)

// primeRounds is the number of Miller-Rabin rounds run on top of the
// Baillie-PSW test performed by big.Int.ProbablyPrime.
const primeRounds = 20

// HashPrime deterministically derives a probable prime of the given bit
// length from seed. The seed is treated as a big-endian counter: it is
// incremented before every SHA-256 invocation and the digests are
// concatenated until enough bits are collected. Every bit position listed
// in bitmask is then forced to one, as is bit 0, and the first candidate
// that passes the primality test is returned.
//
// The seed must be non-empty; an empty seed never changes between rounds
// and would loop forever.
func HashPrime(seed []byte, bits int, bitmask []int) *big.Int {
	if len(seed) == 0 || bits <= 0 {
		return nil
	}
	sprout := make([]byte, len(seed))
	copy(sprout, seed)

	nbytes := (bits + 7) / 8
	blob := make([]byte, 0, nbytes)
	p := new(big.Int)
	for {
		blob = blob[:0]
		for len(blob) < nbytes {
			incrementBE(sprout)
			digest := sha256.Sum256(sprout)
			take := nbytes - len(blob)
			if take > len(digest) {
				take = len(digest)
			}
			blob = append(blob, digest[:take]...)
		}
		p.SetBytes(blob)
		if extra := nbytes*8 - bits; extra > 0 {
			p.Rsh(p, uint(extra))
		}
		for _, b := range bitmask {
			p.SetBit(p, b, 1)
		}
		p.SetBit(p, 0, 1)
		if p.ProbablyPrime(primeRounds) {
			return new(big.Int).Set(p)
		}
	}
}

// incrementBE adds one to the big-endian integer stored in b, wrapping on
// overflow.
func incrementBE(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}
