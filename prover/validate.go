package prover

import (
	"bytes"
	"fmt"
)

// ValidateResult compares the encoding of y with a caller-supplied
// reference. Any difference in length or content is a mismatch.
func ValidateResult(y, ref []byte) error {
	if len(y) != len(ref) {
		return fmt.Errorf("%w: length %d, reference %d", ErrResultMismatch, len(y), len(ref))
	}
	if !bytes.Equal(y, ref) {
		return fmt.Errorf("%w: y differs from reference", ErrResultMismatch)
	}
	return nil
}
