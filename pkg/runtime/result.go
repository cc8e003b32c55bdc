package runtime

import (
	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Result is the outcome of processing one instruction.
type Result struct {
	// Logs holds the runtime and program log lines in emission order.
	Logs []string

	// ComputeUnits is the compute consumed by the program.
	ComputeUnits types.ComputeUnits

	// AccountDeltas lists the accounts written back to the store.
	// Empty when Err is set.
	AccountDeltas []types.AccountDelta

	// Err is the instruction error, nil on success.
	Err error
}

// Success returns true if the instruction succeeded.
func (r *Result) Success() bool {
	return r.Err == nil
}

// ErrorCode returns the program error code of a failed instruction.
func (r *Result) ErrorCode() (uint64, bool) {
	if r.Err == nil {
		return 0, false
	}
	return invoke.ErrorCode(r.Err)
}
