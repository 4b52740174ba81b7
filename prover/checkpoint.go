package prover

import (
	"fmt"

	"github.com/hoffmang9/WesoForge/classgroup"
)

// CheckpointStore is an append-only, index-addressable sequence of forms.
// Index i holds the running form before squaring number i·K·L.
type CheckpointStore interface {
	// Append stores a copy of f as the next checkpoint.
	Append(f *classgroup.Form) error
	// At returns checkpoint i. The caller must not mutate the result.
	At(i uint64) (*classgroup.Form, error)
	// Len returns the number of checkpoints stored.
	Len() uint64
	// Close releases the store's resources.
	Close() error
}

// memStore keeps checkpoints in a preallocated slice.
type memStore struct {
	forms []*classgroup.Form
}

func newMemStore(capacity uint64) *memStore {
	return &memStore{forms: make([]*classgroup.Form, 0, capacity)}
}

func (s *memStore) Append(f *classgroup.Form) error {
	s.forms = append(s.forms, f.Clone())
	return nil
}

func (s *memStore) At(i uint64) (*classgroup.Form, error) {
	if i >= uint64(len(s.forms)) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrCheckpointStore, i, len(s.forms))
	}
	return s.forms[i], nil
}

func (s *memStore) Len() uint64 { return uint64(len(s.forms)) }

func (s *memStore) Close() error {
	s.forms = nil
	return nil
}
