package invoke

import (
	"errors"
	"fmt"
)

// builtinBitShift positions builtin error numbers in the upper 32 bits of a
// program error code, leaving the lower half for program-defined codes.
const builtinBitShift = 32

// ProgramError is an error a program returns to the runtime. Each value carries
// the numeric code the runtime reports to the caller.
type ProgramError struct {
	name string
	code uint64
}

func newBuiltin(n uint64, name string) *ProgramError {
	return &ProgramError{name: name, code: n << builtinBitShift}
}

// NewCustomError returns a program-defined error with the given code.
func NewCustomError(code uint32) *ProgramError {
	return &ProgramError{name: fmt.Sprintf("custom program error: %#x", code), code: uint64(code)}
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	return e.name
}

// Code returns the numeric error code.
func (e *ProgramError) Code() uint64 {
	return e.code
}

// Builtin program errors.
var (
	ErrInvalidArgument           = newBuiltin(2, "invalid argument")
	ErrInvalidInstructionData    = newBuiltin(3, "invalid instruction data")
	ErrInvalidAccountData        = newBuiltin(4, "invalid account data")
	ErrAccountAlreadyInitialized = newBuiltin(9, "account already initialized")
	ErrUninitializedAccount      = newBuiltin(10, "uninitialized account")
	ErrNotEnoughAccountKeys      = newBuiltin(11, "not enough account keys")
	ErrAccountNotRentExempt      = newBuiltin(16, "account not rent exempt")
)

// ErrorCode extracts the program error code from err, looking through wrapping.
func ErrorCode(err error) (uint64, bool) {
	var perr *ProgramError
	if errors.As(err, &perr) {
		return perr.Code(), true
	}
	return 0, false
}
