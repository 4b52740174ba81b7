package classgroup

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/lru"
)

var (
	ErrEmptyChallenge   = errors.New("classgroup: empty challenge")
	ErrDiscriminantBits = errors.New("classgroup: discriminant size too small")
)

// MinDiscriminantBits is the smallest supported discriminant size. Below
// it the class group is too small to be meaningful and the forced low
// bits collide with the forced top bit.
const MinDiscriminantBits = 16

// discriminantCacheSize bounds the number of (challenge, bits) pairs whose
// discriminant is kept around. Deriving a 1024-bit discriminant costs a
// prime search, and batch or benchmark runs prove against the same
// challenge over and over.
const discriminantCacheSize = 128

// discriminantCache maps cacheKey(challenge, bits) to the negative
// discriminant. Cached values are shared and must never be mutated.
var discriminantCache = lru.NewCache[string, *big.Int](discriminantCacheSize)

// CreateDiscriminant derives the negative prime discriminant D for the given
// challenge. |D| has exactly bits bits and D = 1 (mod 8), which makes the
// form (2, 1, (1-D)/8) well defined.
//
// The returned value is a fresh copy owned by the caller.
func CreateDiscriminant(challenge []byte, bits int) (*big.Int, error) {
	if len(challenge) == 0 {
		return nil, ErrEmptyChallenge
	}
	if bits < MinDiscriminantBits {
		return nil, ErrDiscriminantBits
	}
	key := cacheKey(challenge, bits)
	if d, ok := discriminantCache.Get(key); ok {
		return new(big.Int).Set(d), nil
	}
	p := HashPrime(challenge, bits, []int{0, 1, 2, bits - 1})
	d := p.Neg(p)
	discriminantCache.Add(key, d)
	return new(big.Int).Set(d), nil
}

func cacheKey(challenge []byte, bits int) string {
	return strconv.Itoa(bits) + ":" + string(challenge)
}
