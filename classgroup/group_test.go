package classgroup

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

// testGroup returns a small class group so arithmetic tests stay fast.
func testGroup(t *testing.T) *Group {
	t.Helper()
	g, err := New([]byte("classgroup test challenge"), 256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestHashPrimeDeterministic(t *testing.T) {
	seed := []byte{0x01, 0x02, 0x03}
	p1 := HashPrime(seed, 264, []int{263})
	p2 := HashPrime(seed, 264, []int{263})
	if p1.Cmp(p2) != 0 {
		t.Fatalf("HashPrime not deterministic: %s != %s", p1, p2)
	}
	if p1.BitLen() != 264 {
		t.Fatalf("bit length = %d, want 264", p1.BitLen())
	}
	if !p1.ProbablyPrime(20) {
		t.Fatalf("HashPrime returned composite %s", p1)
	}
	if !bytes.Equal(seed, []byte{0x01, 0x02, 0x03}) {
		t.Fatal("HashPrime mutated its seed")
	}
}

func TestHashPrimeBitmask(t *testing.T) {
	p := HashPrime([]byte("mask"), 64, []int{0, 1, 2, 63})
	for _, b := range []int{0, 1, 2, 63} {
		if p.Bit(b) != 1 {
			t.Errorf("bit %d not set in %s", b, p.Text(2))
		}
	}
	if p.BitLen() != 64 {
		t.Fatalf("bit length = %d, want 64", p.BitLen())
	}
}

func TestHashPrimeOddBitLength(t *testing.T) {
	p := HashPrime([]byte("odd"), 61, []int{60})
	if p.BitLen() != 61 {
		t.Fatalf("bit length = %d, want 61", p.BitLen())
	}
}

func TestHashPrimeRejectsEmptySeed(t *testing.T) {
	if p := HashPrime(nil, 64, nil); p != nil {
		t.Fatalf("expected nil for empty seed, got %s", p)
	}
}

func TestCreateDiscriminant(t *testing.T) {
	d, err := CreateDiscriminant([]byte("disc"), 128)
	if err != nil {
		t.Fatalf("CreateDiscriminant: %v", err)
	}
	if d.Sign() >= 0 {
		t.Fatalf("discriminant must be negative, got %s", d)
	}
	negD := new(big.Int).Neg(d)
	if negD.BitLen() != 128 {
		t.Fatalf("|D| bit length = %d, want 128", negD.BitLen())
	}
	if m := new(big.Int).Mod(d, big.NewInt(8)); m.Int64() != 1 {
		t.Fatalf("D mod 8 = %d, want 1", m.Int64())
	}

	// The cache must hand out copies.
	d.SetInt64(0)
	again, err := CreateDiscriminant([]byte("disc"), 128)
	if err != nil {
		t.Fatalf("CreateDiscriminant: %v", err)
	}
	if again.Sign() == 0 {
		t.Fatal("mutating a returned discriminant corrupted the cache")
	}
}

func TestCreateDiscriminantErrors(t *testing.T) {
	if _, err := CreateDiscriminant(nil, 128); !errors.Is(err, ErrEmptyChallenge) {
		t.Fatalf("expected ErrEmptyChallenge, got %v", err)
	}
	if _, err := CreateDiscriminant([]byte("x"), 0); !errors.Is(err, ErrDiscriminantBits) {
		t.Fatalf("expected ErrDiscriminantBits, got %v", err)
	}
}

func TestNewFromDiscriminantRejects(t *testing.T) {
	if _, err := NewFromDiscriminant(big.NewInt(23)); err == nil {
		t.Fatal("expected error for positive discriminant")
	}
	if _, err := NewFromDiscriminant(big.NewInt(-20)); err == nil {
		t.Fatal("expected error for discriminant 0 mod 4")
	}
}

// TestSmallGroupOrder checks the class group of discriminant -23, which is
// cyclic of order 3 and generated by (2, 1, 3).
func TestSmallGroupOrder(t *testing.T) {
	g, err := NewFromDiscriminant(big.NewInt(-23))
	if err != nil {
		t.Fatalf("NewFromDiscriminant: %v", err)
	}
	gen := g.Generator()
	want := NewForm(big.NewInt(2), big.NewInt(1), big.NewInt(3))
	if !gen.Equal(want) {
		t.Fatalf("generator = %s, want %s", gen, want)
	}

	sq := gen.Clone()
	g.Square(sq)
	wantSq := NewForm(big.NewInt(2), big.NewInt(-1), big.NewInt(3))
	if !sq.Equal(wantSq) {
		t.Fatalf("g^2 = %s, want %s", sq, wantSq)
	}

	cube := g.Multiply(sq, gen)
	if !cube.Equal(g.Identity()) {
		t.Fatalf("g^3 = %s, want identity %s", cube, g.Identity())
	}
}

func TestSquareMatchesMultiply(t *testing.T) {
	g := testGroup(t)
	d := g.Discriminant()
	f := g.Generator()
	for i := 0; i < 64; i++ {
		sq := f.Clone()
		g.Square(sq)
		mul := g.Multiply(f, f)
		if !sq.Equal(mul) {
			t.Fatalf("step %d: square %s != multiply %s", i, sq, mul)
		}
		if sq.Discriminant().Cmp(d) != 0 {
			t.Fatalf("step %d: discriminant drifted", i)
		}
		if !sq.IsReduced() {
			t.Fatalf("step %d: square not reduced: %s", i, sq)
		}
		f = sq
	}
}

func TestIdentityAndInverse(t *testing.T) {
	g := testGroup(t)
	f := g.PowUint64(g.Generator(), 12345)
	id := g.Identity()

	if got := g.Multiply(f, id); !got.Equal(f) {
		t.Fatalf("f * 1 = %s, want %s", got, f)
	}
	if got := g.Multiply(id, f); !got.Equal(f) {
		t.Fatalf("1 * f = %s, want %s", got, f)
	}
	if got := g.Multiply(f, g.Inverse(f)); !got.Equal(id) {
		t.Fatalf("f * f^-1 = %s, want identity", got)
	}
}

func TestPowMatchesRepeatedSquaring(t *testing.T) {
	g := testGroup(t)
	x := g.Generator()

	want := x.Clone()
	for i := 0; i < 20; i++ {
		g.Square(want)
	}
	got := g.Pow(x, new(big.Int).Lsh(big.NewInt(1), 20))
	if !got.Equal(want) {
		t.Fatalf("x^(2^20) = %s, want %s", got, want)
	}
}

func TestPowIsAdditive(t *testing.T) {
	g := testGroup(t)
	x := g.Generator()
	tests := []struct{ a, b uint64 }{
		{0, 0},
		{1, 0},
		{20, 17},
		{255, 1},
		{1 << 20, 12345},
	}
	for _, tt := range tests {
		lhs := g.PowUint64(x, tt.a+tt.b)
		rhs := g.Multiply(g.PowUint64(x, tt.a), g.PowUint64(x, tt.b))
		if !lhs.Equal(rhs) {
			t.Errorf("x^(%d+%d): %s != %s", tt.a, tt.b, lhs, rhs)
		}
	}
	if got := g.Pow(x, big.NewInt(-3)); !g.Multiply(got, g.PowUint64(x, 3)).Equal(g.Identity()) {
		t.Fatal("x^-3 * x^3 is not the identity")
	}
}

func TestFourthRootBound(t *testing.T) {
	g := testGroup(t)
	l := g.FourthRoot()
	l4 := new(big.Int).Exp(l, big.NewInt(4), nil)
	negD := new(big.Int).Neg(g.Discriminant())
	if l4.Cmp(negD) > 0 {
		t.Fatalf("L^4 = %s exceeds |D| = %s", l4, negD)
	}
	l2 := new(big.Int).Mul(l, l)
	f := g.PowUint64(g.Generator(), 99991)
	if f.A.Cmp(l2) > 0 {
		t.Fatalf("reduced a = %s exceeds L^2 = %s", f.A, l2)
	}
}

func TestFormMemoryBits(t *testing.T) {
	g := testGroup(t)
	if got, want := FormMemoryBits(g.Bits()), g.FormMemory(); got != want {
		t.Fatalf("FormMemoryBits(%d) = %d, want %d", g.Bits(), got, want)
	}
	tests := []struct {
		bits int
		want uint64
	}{
		{128, 168},
		{1024, 336},
	}
	for _, tt := range tests {
		if got := FormMemoryBits(tt.bits); got != tt.want {
			t.Errorf("FormMemoryBits(%d) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}
