package mintinit

import "github.com/fortiblox/x1-mint/pkg/svm/invoke"

// Errors the program can return. They are the runtime's builtin program
// errors, so the code reported to callers matches what a validator reports.
var (
	ErrInvalidArgument           = invoke.ErrInvalidArgument
	ErrInvalidInstructionData    = invoke.ErrInvalidInstructionData
	ErrInvalidAccountData        = invoke.ErrInvalidAccountData
	ErrAccountAlreadyInitialized = invoke.ErrAccountAlreadyInitialized
	ErrUninitializedAccount      = invoke.ErrUninitializedAccount
	ErrNotEnoughAccountKeys      = invoke.ErrNotEnoughAccountKeys
	ErrAccountNotRentExempt      = invoke.ErrAccountNotRentExempt
)

// ErrorCode returns the program error code carried by err.
func ErrorCode(err error) (uint64, bool) {
	return invoke.ErrorCode(err)
}
