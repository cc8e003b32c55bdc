// Package invoke holds the state a native program sees while it executes:
// the instruction's accounts, its data, the compute meter and the log buffer.
package invoke

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// Context errors
var (
	ErrComputeExhausted = errors.New("compute units exhausted")
	ErrMaxLogsExceeded  = errors.New("maximum log entries exceeded")
	ErrLogTooLong       = errors.New("log message too long")
)

// Limits for execution
const (
	MaxLogMessages      = 64
	MaxLogMessageLength = 10000

	// LogComputeUnits is charged for every program log message.
	LogComputeUnits = 100
)

// AccountInfo represents account information available to a program.
type AccountInfo struct {
	Pubkey     types.Pubkey
	Lamports   *uint64 // Pointer allows modification detection
	Data       []byte
	Owner      types.Pubkey
	Executable bool
	RentEpoch  uint64
	IsSigner   bool
	IsWritable bool
}

// NewAccountInfo builds an AccountInfo from a stored account and its instruction meta.
// The data buffer is copied so the program never aliases storage.
func NewAccountInfo(meta types.AccountMeta, account *types.Account) *AccountInfo {
	lamports := uint64(account.Lamports)
	info := &AccountInfo{
		Pubkey:     meta.Pubkey,
		Lamports:   &lamports,
		Owner:      account.Owner,
		Executable: account.Executable,
		RentEpoch:  uint64(account.RentEpoch),
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
	}
	if account.Data != nil {
		info.Data = make([]byte, len(account.Data))
		copy(info.Data, account.Data)
	}
	return info
}

// Clone creates a deep copy of AccountInfo.
func (a *AccountInfo) Clone() *AccountInfo {
	if a == nil {
		return nil
	}
	lamports := *a.Lamports
	clone := &AccountInfo{
		Pubkey:     a.Pubkey,
		Lamports:   &lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
		IsSigner:   a.IsSigner,
		IsWritable: a.IsWritable,
	}
	if a.Data != nil {
		clone.Data = make([]byte, len(a.Data))
		copy(clone.Data, a.Data)
	}
	return clone
}

// LamportBalance returns the account balance.
func (a *AccountInfo) LamportBalance() uint64 {
	if a.Lamports == nil {
		return 0
	}
	return *a.Lamports
}

// DataLen returns the length of the account data.
func (a *AccountInfo) DataLen() int {
	return len(a.Data)
}

// ToAccount converts the info back into a storable account.
func (a *AccountInfo) ToAccount() *types.Account {
	var data []byte
	if a.Data != nil {
		data = make([]byte, len(a.Data))
		copy(data, a.Data)
	}
	return &types.Account{
		Lamports:   types.Lamports(a.LamportBalance()),
		Data:       data,
		Owner:      a.Owner,
		Executable: a.Executable,
		RentEpoch:  types.Epoch(a.RentEpoch),
	}
}

// ExecutionContext holds the execution state of a single instruction.
type ExecutionContext struct {
	mu sync.RWMutex

	// Program being executed
	ProgramID types.Pubkey

	// Accounts available to the instruction, in instruction order
	Accounts []*AccountInfo

	// Instruction data
	InstructionData []byte

	// Compute meter
	computeUnits    uint64
	maxComputeUnits uint64

	// Execution logs
	logs    []string
	maxLogs int
}

// NewExecutionContext creates a new execution context.
func NewExecutionContext(programID types.Pubkey, accounts []*AccountInfo, instructionData []byte, computeUnits uint64) *ExecutionContext {
	return &ExecutionContext{
		ProgramID:       programID,
		Accounts:        accounts,
		InstructionData: instructionData,
		computeUnits:    computeUnits,
		maxComputeUnits: computeUnits,
		logs:            make([]string, 0, MaxLogMessages),
		maxLogs:         MaxLogMessages,
	}
}

// ConsumeComputeUnits deducts compute units.
func (ctx *ExecutionContext) ConsumeComputeUnits(units uint64) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if units > ctx.computeUnits {
		ctx.computeUnits = 0
		return ErrComputeExhausted
	}
	ctx.computeUnits -= units
	return nil
}

// GetComputeUnitsRemaining returns remaining compute units.
func (ctx *ExecutionContext) GetComputeUnitsRemaining() uint64 {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.computeUnits
}

// GetComputeUnitsConsumed returns consumed compute units.
func (ctx *ExecutionContext) GetComputeUnitsConsumed() uint64 {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.maxComputeUnits - ctx.computeUnits
}

// AddLog adds a raw log line.
func (ctx *ExecutionContext) AddLog(message string) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if len(ctx.logs) >= ctx.maxLogs {
		return ErrMaxLogsExceeded
	}
	if len(message) > MaxLogMessageLength {
		return ErrLogTooLong
	}

	ctx.logs = append(ctx.logs, message)
	return nil
}

// Log records a program log message, charging compute like sol_log_.
// Log overflow is not an execution failure; exhausting compute is.
func (ctx *ExecutionContext) Log(message string) error {
	if err := ctx.ConsumeComputeUnits(LogComputeUnits); err != nil {
		return err
	}
	_ = ctx.AddLog(fmt.Sprintf("Program log: %s", message))
	return nil
}

// GetLogs returns all log messages.
func (ctx *ExecutionContext) GetLogs() []string {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	logs := make([]string, len(ctx.logs))
	copy(logs, ctx.logs)
	return logs
}

// AccountIter returns a cursor over the instruction's accounts.
func (ctx *ExecutionContext) AccountIter() *AccountIter {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return NewAccountIter(ctx.Accounts)
}
