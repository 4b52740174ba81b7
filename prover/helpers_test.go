package prover

import (
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/hoffmang9/WesoForge/classgroup"
	"github.com/hoffmang9/WesoForge/log"
)

var (
	testChallenge = []byte("wesoforge prover test challenge")
	testBits      = 128
)

// testSetup returns the test group and the encoded generator.
func testSetup(t *testing.T) (Group, *classgroup.Form, []byte) {
	t.Helper()
	g, err := NewClassGroup(testChallenge, testBits)
	if err != nil {
		t.Fatalf("NewClassGroup: %v", err)
	}
	x := g.(*classgroup.Group).Generator()
	enc, err := g.Encode(x)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return g, x, enc
}

// squareN returns x squared n times.
func squareN(g Group, x *classgroup.Form, n uint64) *classgroup.Form {
	f := x.Clone()
	for i := uint64(0); i < n; i++ {
		g.Square(f)
	}
	return f
}

// verifyProof checks π^B · x^(2^t mod B) == y.
func verifyProof(t *testing.T, g Group, x *classgroup.Form, iters uint64, yEnc, proofEnc []byte) {
	t.Helper()
	y, err := g.Decode(yEnc)
	if err != nil {
		t.Fatalf("decode y: %v", err)
	}
	pi, err := g.Decode(proofEnc)
	if err != nil {
		t.Fatalf("decode proof: %v", err)
	}
	b, err := ChallengePrime(g, x, y)
	if err != nil {
		t.Fatalf("ChallengePrime: %v", err)
	}
	r := new(big.Int).Exp(big.NewInt(2), new(big.Int).SetUint64(iters), b)
	lhs := g.Multiply(g.Pow(pi, b), g.Pow(x, r))
	if !lhs.Equal(y) {
		t.Fatalf("proof does not verify for T=%d", iters)
	}
}

// countingGroup counts calls into the wrapped group.
type countingGroup struct {
	Group
	squares    atomic.Int64
	multiplies atomic.Int64
	pows       atomic.Int64
	decodes    atomic.Int64
	encodes    atomic.Int64
	panicAt    int64 // Square panics on this call when non-zero

	// failEncodeAt makes Encode fail on this call when non-zero, returning
	// encodeErr (nil yields an empty encoding).
	failEncodeAt int64
	encodeErr    error
}

func (c *countingGroup) Square(f *classgroup.Form) {
	if n := c.squares.Add(1); n == c.panicAt {
		panic("injected squaring fault")
	}
	c.Group.Square(f)
}

func (c *countingGroup) Multiply(a, b *classgroup.Form) *classgroup.Form {
	c.multiplies.Add(1)
	return c.Group.Multiply(a, b)
}

func (c *countingGroup) Pow(f *classgroup.Form, e *big.Int) *classgroup.Form {
	c.pows.Add(1)
	return c.Group.Pow(f, e)
}

func (c *countingGroup) Decode(data []byte) (*classgroup.Form, error) {
	c.decodes.Add(1)
	return c.Group.Decode(data)
}

func (c *countingGroup) Encode(f *classgroup.Form) ([]byte, error) {
	if n := c.encodes.Add(1); n == c.failEncodeAt {
		return nil, c.encodeErr
	}
	return c.Group.Encode(f)
}

func (c *countingGroup) arithmetic() int64 {
	return c.squares.Load() + c.multiplies.Load() + c.pows.Load()
}

// countingFactory returns a GroupFactory that wraps every group it builds
// and counts how often it was invoked.
type countingFactory struct {
	calls   atomic.Int64
	last    atomic.Pointer[countingGroup]
	panicAt int64

	failEncodeAt int64
	encodeErr    error
}

func (cf *countingFactory) build(challenge []byte, bits int) (Group, error) {
	cf.calls.Add(1)
	g, err := NewClassGroup(challenge, bits)
	if err != nil {
		return nil, err
	}
	cg := &countingGroup{
		Group:        g,
		panicAt:      cf.panicAt,
		failEncodeAt: cf.failEncodeAt,
		encodeErr:    cf.encodeErr,
	}
	cf.last.Store(cg)
	return cg, nil
}

func newTestProver(t *testing.T, cfg Config, opts ...Option) *Prover {
	t.Helper()
	base := []Option{WithSettings(NewSettings(cfg)), WithLogger(log.Discard())}
	return New(append(base, opts...)...)
}
