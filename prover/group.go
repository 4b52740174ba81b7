package prover

import (
	"math/big"

	"github.com/hoffmang9/WesoForge/classgroup"
)

// Group is the class group arithmetic the prover consumes. *classgroup.Group
// implements it.
type Group interface {
	Identity() *classgroup.Form
	// Square replaces f by its reduced square.
	Square(f *classgroup.Form)
	Multiply(a, b *classgroup.Form) *classgroup.Form
	Pow(f *classgroup.Form, e *big.Int) *classgroup.Form
	Encode(f *classgroup.Form) ([]byte, error)
	Decode(data []byte) (*classgroup.Form, error)
	Bits() int
	ElementSize() int
	FormMemory() uint64
}

// GroupFactory derives the group for a challenge and discriminant size.
type GroupFactory func(challenge []byte, bits int) (Group, error)

// NewClassGroup is the default GroupFactory.
func NewClassGroup(challenge []byte, bits int) (Group, error) {
	return classgroup.New(challenge, bits)
}
