package prover

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by Prove and ProveBatch wraps exactly
// one of these, so callers can use errors.Is.
var (
	ErrInvalidInput    = errors.New("prover: invalid input")
	ErrResultMismatch  = errors.New("prover: result mismatch")
	ErrEncodingFault   = errors.New("prover: encoding fault")
	ErrArithmetic      = errors.New("prover: arithmetic fault")
	ErrCanceled        = errors.New("prover: canceled")
	ErrTuner           = errors.New("prover: tuner produced an empty plan")
	ErrCheckpointStore = errors.New("prover: checkpoint store failure")
)

// Stage identifies a step of the proving state machine.
type Stage uint8

const (
	StageValidatingInput Stage = iota
	StageTuning
	StageSquaring
	StageValidatingResult
	StageProving
	StageEncoding
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageValidatingInput:  "validating-input",
	StageTuning:           "tuning",
	StageSquaring:         "squaring",
	StageValidatingResult: "validating-result",
	StageProving:          "proving",
	StageEncoding:         "encoding",
	StageDone:             "done",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ProveError reports the stage at which a proving operation failed.
type ProveError struct {
	Stage Stage
	Err   error
}

func (e *ProveError) Error() string {
	return fmt.Sprintf("prover: %s: %v", e.Stage, e.Err)
}

func (e *ProveError) Unwrap() error { return e.Err }

// kindOf returns the failure kind err wraps, or nil if it wraps none.
func kindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput, ErrResultMismatch, ErrEncodingFault,
		ErrArithmetic, ErrCanceled, ErrTuner, ErrCheckpointStore,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
