// Package classgroup implements arithmetic in the class group of an
// imaginary quadratic order, the group in which WesoForge evaluates its
// verifiable delay function. Elements are reduced binary quadratic forms;
// every operation returns (or leaves) its result reduced, so equal classes
// always have equal coefficients and equal encodings.
//
// A Group is immutable after construction and safe for concurrent use.
// Forms are plain values: a form must not be mutated by one goroutine while
// another reads it.
package classgroup

import (
	"errors"
	"math/big"
)

var (
	errNotPositiveDefinite = errors.New("classgroup: discriminant must be negative")
	errDiscriminantMod4    = errors.New("classgroup: discriminant must be 1 mod 4")
	errNoSolution          = errors.New("classgroup: congruence has no solution")
)

var (
	bigOne = big.NewInt(1)
	bigTwo = big.NewInt(2)
)

// Group is the class group of discriminant D.
type Group struct {
	d    *big.Int // negative discriminant
	l    *big.Int // floor(|D|^(1/4))
	bits int      // bit length of |D|
}

// New derives the discriminant from challenge and returns its class group.
func New(challenge []byte, bits int) (*Group, error) {
	d, err := CreateDiscriminant(challenge, bits)
	if err != nil {
		return nil, err
	}
	return NewFromDiscriminant(d)
}

// NewFromDiscriminant returns the class group of discriminant d. The value
// is copied.
func NewFromDiscriminant(d *big.Int) (*Group, error) {
	if d.Sign() >= 0 {
		return nil, errNotPositiveDefinite
	}
	if new(big.Int).Mod(d, big.NewInt(4)).Cmp(bigOne) != 0 {
		return nil, errDiscriminantMod4
	}
	negD := new(big.Int).Neg(d)
	l := new(big.Int).Sqrt(negD)
	l.Sqrt(l)
	return &Group{
		d:    new(big.Int).Set(d),
		l:    l,
		bits: negD.BitLen(),
	}, nil
}

// Discriminant returns a copy of D.
func (g *Group) Discriminant() *big.Int { return new(big.Int).Set(g.d) }

// FourthRoot returns a copy of floor(|D|^(1/4)). Every reduced form has
// a <= sqrt(|D|/3), which is below FourthRoot()².
func (g *Group) FourthRoot() *big.Int { return new(big.Int).Set(g.l) }

// Bits returns the bit length of |D|.
func (g *Group) Bits() int { return g.bits }

// FormMemory estimates the heap footprint in bytes of one reduced form.
// The prover uses it to size checkpoint buffers against a memory budget.
func (g *Group) FormMemory() uint64 { return FormMemoryBits(g.bits) }

// FormMemoryBits is FormMemory for a discriminant of the given bit length,
// without constructing the group.
func FormMemoryBits(bits int) uint64 {
	words := uint64(bits/2+63)/64 + 1
	return 3*(32+8*words) + 24
}

// Identity returns the principal form (1, 1, (1-D)/4).
func (g *Group) Identity() *Form {
	return g.formFromAB(bigOne, bigOne)
}

// Generator returns the form (2, 1, (1-D)/8), the conventional starting
// element for a proof chain.
func (g *Group) Generator() *Form {
	return g.formFromAB(bigTwo, bigOne)
}

// formFromAB completes (a, b) to a form of discriminant D. The caller
// guarantees that 4a divides b² - D.
func (g *Group) formFromAB(a, b *big.Int) *Form {
	c := new(big.Int).Mul(b, b)
	c.Sub(c, g.d)
	c.Quo(c, new(big.Int).Lsh(a, 2))
	f := &Form{A: new(big.Int).Set(a), B: new(big.Int).Set(b), C: c}
	reduce(f)
	return f
}

// Reduce replaces f by the reduced representative of its class.
func (g *Group) Reduce(f *Form) { reduce(f) }

// Square replaces f by f² and reduces the result. It is the step the delay
// function repeats.
func (g *Group) Square(f *Form) {
	// With w = gcd(a, b) = ax + by, the square is
	// (s², b - 2ks, k² - wm) where s = a/w, u = b/w, k = cy mod s and
	// m = (uk - c)/s.
	w := new(big.Int)
	y := new(big.Int)
	w.GCD(nil, y, f.A, f.B)

	s := new(big.Int).Quo(f.A, w)
	u := new(big.Int).Quo(f.B, w)

	k := new(big.Int).Mul(f.C, y)
	k.Mod(k, s)

	m := new(big.Int).Mul(u, k)
	m.Sub(m, f.C)
	m.Quo(m, s)

	c := new(big.Int).Mul(k, k)
	c.Sub(c, m.Mul(m, w))

	k.Mul(k, s)
	k.Lsh(k, 1)
	f.B.Sub(f.B, k)
	f.A.Mul(s, s)
	f.C.Set(c)
	reduce(f)
}

// Multiply returns the reduced composition of f1 and f2. Both forms must
// share the group's discriminant; composing forms of different
// discriminants panics.
func (g *Group) Multiply(f1, f2 *Form) *Form {
	a1, b1, c1 := f1.A, f1.B, f1.C
	a2, b2 := f2.A, f2.B

	// gg = (b1 + b2) / 2, h = (b2 - b1) / 2; b1 and b2 share parity.
	gg := new(big.Int).Add(b1, b2)
	gg.Quo(gg, bigTwo)
	h := new(big.Int).Sub(b2, b1)
	h.Quo(h, bigTwo)

	w := new(big.Int).GCD(nil, nil, a1, a2)
	w.GCD(nil, nil, w, gg)

	s := new(big.Int).Quo(a1, w)
	t := new(big.Int).Quo(a2, w)
	u := new(big.Int).Quo(gg, w)
	st := new(big.Int).Mul(s, t)

	// Solve for k, l, m:
	//   kt - ls = h
	//   ku - ms = c2
	//   lu - mt = c1
	tu := new(big.Int).Mul(t, u)
	rhs := new(big.Int).Mul(h, u)
	rhs.Add(rhs, new(big.Int).Mul(s, c1))
	kTemp, step := solveMod(tu, rhs, st)

	rhs.Mul(t, kTemp)
	rhs.Sub(h, rhs)
	n, _ := solveMod(new(big.Int).Mul(t, step), rhs, s)

	k := n.Mul(n, step)
	k.Add(k, kTemp)

	l := new(big.Int).Mul(t, k)
	l.Sub(l, h)
	l.Quo(l, s)

	m := new(big.Int).Mul(tu, k)
	m.Sub(m, new(big.Int).Mul(h, u))
	m.Sub(m, new(big.Int).Mul(s, c1))
	m.Quo(m, st)

	b3 := new(big.Int).Mul(w, u)
	b3.Sub(b3, new(big.Int).Mul(k, t))
	b3.Sub(b3, new(big.Int).Mul(l, s))

	c3 := new(big.Int).Mul(k, l)
	c3.Sub(c3, m.Mul(m, w))

	f := &Form{A: st, B: b3, C: c3}
	reduce(f)
	return f
}

// Pow returns f^e, reducing after every squaring and multiplication. A
// negative exponent raises the inverse of f.
func (g *Group) Pow(f *Form, e *big.Int) *Form {
	base := f
	if e.Sign() < 0 {
		base = g.Inverse(f)
		e = new(big.Int).Neg(e)
	}
	res := g.Identity()
	for i := e.BitLen() - 1; i >= 0; i-- {
		g.Square(res)
		if e.Bit(i) == 1 {
			res = g.Multiply(res, base)
		}
	}
	return res
}

// PowUint64 is Pow for a machine-word exponent.
func (g *Group) PowUint64(f *Form, e uint64) *Form {
	return g.Pow(f, new(big.Int).SetUint64(e))
}

// Inverse returns the inverse class (a, -b, c), reduced.
func (g *Group) Inverse(f *Form) *Form {
	inv := f.Clone()
	inv.B.Neg(inv.B)
	reduce(inv)
	return inv
}

// solveMod solves ax = b (mod m) for m > 0 and returns the smallest
// non-negative solution together with the step between solutions. It
// panics when the congruence has no solution, which only happens for
// malformed forms.
func solveMod(a, b, m *big.Int) (*big.Int, *big.Int) {
	d := new(big.Int)
	g := new(big.Int).GCD(d, nil, a, m)
	q, r := new(big.Int).QuoRem(b, g, new(big.Int))
	if r.Sign() != 0 {
		panic(errNoSolution)
	}
	q.Mul(q, d)
	q.Mod(q, m)
	return q, new(big.Int).Quo(m, g)
}
