package classgroup

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrInvalidEncoding is returned when a byte string is not the encoding
	// of a form of the group's discriminant.
	ErrInvalidEncoding = errors.New("classgroup: invalid form encoding")
	// ErrFormTooLarge is returned when a coefficient does not fit the fixed
	// encoding width. Reduced forms always fit.
	ErrFormTooLarge = errors.New("classgroup: form coefficient exceeds encoding width")
)

// IntSize returns the width in bytes of one encoded coefficient for a
// discriminant of the given bit length.
func IntSize(bits int) int {
	return (bits + 16) >> 4
}

// ElementSize returns the length of an encoded form: the a and b
// coefficients, each in IntSize bytes.
func (g *Group) ElementSize() int {
	return 2 * IntSize(g.bits)
}

// Encode serialises f as a ‖ b, each a fixed-width big-endian two's
// complement integer. c is implied by the discriminant. f is reduced first,
// so every member of a class encodes identically.
func (g *Group) Encode(f *Form) ([]byte, error) {
	r := f
	if !f.IsReduced() {
		r = f.Clone()
		reduce(r)
	}
	n := IntSize(g.bits)
	out := make([]byte, 2*n)
	if err := putSigned(out[:n], r.A); err != nil {
		return nil, err
	}
	if err := putSigned(out[n:], r.B); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode parses an encoding produced by Encode and returns the reduced
// form. It rejects inputs of the wrong length, non-positive a, and (a, b)
// pairs that do not extend to a form of discriminant D.
func (g *Group) Decode(data []byte) (*Form, error) {
	n := IntSize(g.bits)
	if len(data) != 2*n {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrInvalidEncoding, len(data), 2*n)
	}
	a := getSigned(data[:n])
	b := getSigned(data[n:])
	if a.Sign() <= 0 {
		return nil, fmt.Errorf("%w: a must be positive", ErrInvalidEncoding)
	}

	// c = (b² - D) / 4a must be exact.
	num := new(big.Int).Mul(b, b)
	num.Sub(num, g.d)
	den := new(big.Int).Lsh(a, 2)
	c, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		return nil, fmt.Errorf("%w: discriminant mismatch", ErrInvalidEncoding)
	}
	f := &Form{A: a, B: b, C: c}
	reduce(f)
	return f, nil
}

// putSigned writes v into buf as a big-endian two's complement integer.
func putSigned(buf []byte, v *big.Int) error {
	limit := new(big.Int).Lsh(bigOne, uint(8*len(buf)-1))
	if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
		return ErrFormTooLarge
	}
	if v.Sign() >= 0 {
		v.FillBytes(buf)
		return nil
	}
	// 2^(8n) + v
	t := new(big.Int).Lsh(bigOne, uint(8*len(buf)))
	t.Add(t, v)
	t.FillBytes(buf)
	return nil
}

// getSigned reads a big-endian two's complement integer.
func getSigned(buf []byte) *big.Int {
	v := new(big.Int).SetBytes(buf)
	if len(buf) > 0 && buf[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(bigOne, uint(8*len(buf))))
	}
	return v
}
