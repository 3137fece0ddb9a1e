package executor

import (
	"errors"
	"fmt"

	"finch-command-runner/internal/model"
)

type ErrorKind string

const (
	DeviceFault        ErrorKind = "device_fault"
	InvalidInstruction ErrorKind = "invalid_instruction"
)

// ErrUnknownInstruction is the cause of an InvalidInstruction error.
var ErrUnknownInstruction = errors.New("instruction is not in the vocabulary")

// ExecutionError names the instruction whose device call failed.
type ExecutionError struct {
	Kind        ErrorKind
	Index       int
	Instruction model.Instruction
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %d (%s) failed: %v", e.Index+1, e.Instruction, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
