package classgroup

import (
	"fmt"
	"math/big"
)

// Form is a binary quadratic form ax² + bxy + cy² of negative discriminant
// b² - 4ac. Forms handed out by a Group are always reduced, so two forms
// represent the same class exactly when their coefficients are equal.
type Form struct {
	A, B, C *big.Int
}

// NewForm builds a form from its three coefficients. The values are copied.
func NewForm(a, b, c *big.Int) *Form {
	return &Form{
		A: new(big.Int).Set(a),
		B: new(big.Int).Set(b),
		C: new(big.Int).Set(c),
	}
}

// Clone returns a deep copy of f.
func (f *Form) Clone() *Form {
	return NewForm(f.A, f.B, f.C)
}

// Set copies the coefficients of g into f and returns f.
func (f *Form) Set(g *Form) *Form {
	f.A.Set(g.A)
	f.B.Set(g.B)
	f.C.Set(g.C)
	return f
}

// Equal reports whether f and g have identical coefficients.
func (f *Form) Equal(g *Form) bool {
	if f == nil || g == nil {
		return f == g
	}
	return f.A.Cmp(g.A) == 0 && f.B.Cmp(g.B) == 0 && f.C.Cmp(g.C) == 0
}

// Discriminant returns b² - 4ac.
func (f *Form) Discriminant() *big.Int {
	d := new(big.Int).Mul(f.B, f.B)
	ac := new(big.Int).Mul(f.A, f.C)
	ac.Lsh(ac, 2)
	return d.Sub(d, ac)
}

// IsReduced reports whether |b| <= a <= c, with b >= 0 whenever |b| = a or
// a = c.
func (f *Form) IsReduced() bool {
	absB := new(big.Int).Abs(f.B)
	if absB.Cmp(f.A) > 0 || f.A.Cmp(f.C) > 0 {
		return false
	}
	if f.B.Sign() < 0 && (absB.Cmp(f.A) == 0 || f.A.Cmp(f.C) == 0) {
		return false
	}
	return true
}

func (f *Form) String() string {
	return fmt.Sprintf("(%s, %s, %s)", f.A, f.B, f.C)
}

// normalize brings b into the interval (-a, a] without changing the class.
func normalize(f *Form) {
	negA := new(big.Int).Neg(f.A)
	if f.B.Cmp(negA) > 0 && f.B.Cmp(f.A) <= 0 {
		return
	}
	// r = floor((a - b) / 2a)
	r := new(big.Int).Sub(f.A, f.B)
	twoA := new(big.Int).Lsh(f.A, 1)
	r.Div(r, twoA)

	// c' = a r² + b r + c, b' = b + 2 r a
	t := new(big.Int).Mul(f.A, r)
	t.Add(t, f.B)
	t.Mul(t, r)
	f.C.Add(f.C, t)

	t.Mul(twoA, r)
	f.B.Add(f.B, t)
}

// reduce replaces f by the unique reduced form of its class.
func reduce(f *Form) {
	normalize(f)
	s := new(big.Int)
	t := new(big.Int)
	twoC := new(big.Int)
	for f.A.Cmp(f.C) > 0 || (f.A.Cmp(f.C) == 0 && f.B.Sign() < 0) {
		// s = floor((c + b) / 2c)
		twoC.Lsh(f.C, 1)
		s.Add(f.C, f.B)
		s.Div(s, twoC)

		// (a, b, c) <- (c, -b + 2sc, cs² - bs + a)
		t.Mul(f.C, s)
		t.Sub(t, f.B)
		t.Mul(t, s)
		t.Add(t, f.A)

		f.A.Set(f.C)
		f.B.Neg(f.B)
		f.B.Add(f.B, s.Mul(s, twoC))
		f.C.Set(t)
	}
	normalize(f)
}
