// Package runtime executes instructions against the accounts store the way a
// validator would for a single-instruction transaction: load the accounts,
// run the program, and commit its writes only if it succeeded.
package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/metrics"
	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/svm/sysvar"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Runtime errors
var (
	// ErrInvalidInstruction indicates a nil instruction.
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrProgramNotFound indicates the program is not registered.
	ErrProgramNotFound = errors.New("program not found")

	// ErrReadOnlyModified indicates a program changed an account passed read-only.
	ErrReadOnlyModified = errors.New("instruction modified a read-only account")

	// ErrExternalDataModified indicates a program changed data of an account it does not own.
	ErrExternalDataModified = errors.New("instruction modified data of an account it does not own")

	// ErrOwnerModified indicates a program reassigned an account.
	ErrOwnerModified = errors.New("instruction changed an account owner")

	// ErrExecutableModified indicates a program changed the executable flag.
	ErrExecutableModified = errors.New("instruction changed the executable flag")

	// ErrUnbalancedInstruction indicates lamports were created or destroyed.
	ErrUnbalancedInstruction = errors.New("sum of account balances before and after instruction do not match")

	// ErrAccountAlreadyExists indicates CreateAccount was called for an existing account.
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// Config holds the runtime parameters.
type Config struct {
	// ProgramID is the address the mint initializer is deployed at.
	ProgramID types.Pubkey

	// Rent is the schedule published through the rent sysvar.
	Rent sysvar.Rent

	// ComputeUnits is the compute budget of each instruction.
	ComputeUnits types.ComputeUnits
}

// DefaultConfig returns the mainnet rent schedule and default compute budget.
func DefaultConfig() Config {
	return Config{
		ProgramID:    types.MintProgramID,
		Rent:         sysvar.DefaultRent(),
		ComputeUnits: types.DefaultComputeUnitsPerInstruction,
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMetrics records instruction metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// WithLogger replaces the default component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// Runtime processes instructions against an AccountsDB.
// Instructions are processed one at a time.
type Runtime struct {
	mu       sync.Mutex
	db       accounts.AccountsDB
	registry *ProgramRegistry
	config   Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New creates a runtime and publishes the configured rent schedule to the
// rent sysvar account.
func New(db accounts.AccountsDB, registry *ProgramRegistry, config Config, opts ...Option) (*Runtime, error) {
	if err := config.Rent.Validate(); err != nil {
		return nil, fmt.Errorf("rent: %w", err)
	}
	if config.ComputeUnits == 0 {
		config.ComputeUnits = types.DefaultComputeUnitsPerInstruction
	}

	rt := &Runtime{
		db:       db,
		registry: registry,
		config:   config,
		logger:   log.Logger.With().Str("component", "runtime").Logger(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	if err := db.Set(types.SysvarRentID, sysvar.NewRentAccount(config.Rent)); err != nil {
		return nil, fmt.Errorf("install rent sysvar: %w", err)
	}
	rt.updateAccountsGauge()

	return rt, nil
}

// Config returns the runtime configuration.
func (rt *Runtime) Config() Config {
	return rt.config
}

// Registry returns the program registry.
func (rt *Runtime) Registry() *ProgramRegistry {
	return rt.registry
}

// Rent returns the rent schedule published through the rent sysvar.
func (rt *Runtime) Rent() sysvar.Rent {
	return rt.config.Rent
}

// AccountsCount returns the number of stored accounts.
func (rt *Runtime) AccountsCount() uint64 {
	return rt.db.Count()
}

// GetAccount returns a stored account, or nil if it does not exist.
func (rt *Runtime) GetAccount(pubkey types.Pubkey) (*types.Account, error) {
	return rt.db.Get(pubkey)
}

// CreateAccount allocates a zeroed account of the given size owned by the
// configured program. A zero lamports value funds it at the rent-exempt minimum.
func (rt *Runtime) CreateAccount(pubkey types.Pubkey, space uint64, lamports types.Lamports) (*types.Account, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.db.Has(pubkey) {
		return nil, fmt.Errorf("%w: %s", ErrAccountAlreadyExists, pubkey)
	}
	if lamports == 0 {
		lamports = types.Lamports(rt.config.Rent.MinimumBalance(space))
	}

	account := types.NewAccountWithData(lamports, make([]byte, space), rt.config.ProgramID)
	if err := rt.db.Set(pubkey, account); err != nil {
		return nil, err
	}
	rt.updateAccountsGauge()

	rt.logger.Debug().
		Str("account", pubkey.String()).
		Uint64("space", space).
		Uint64("lamports", uint64(lamports)).
		Msg("account created")

	return account, nil
}

// loadedAccounts holds the accounts an instruction references.
type loadedAccounts struct {
	// infos is parallel to the instruction's account metas; repeated keys share one info.
	infos []*invoke.AccountInfo
	// unique lists each distinct account once, in first-reference order.
	unique []*invoke.AccountInfo
	// before holds the stored state, nil for accounts that did not exist.
	before map[types.Pubkey]*types.Account
}

// ProcessInstruction runs one instruction. Program failures are reported in
// Result.Err and leave the store untouched; the returned error is reserved for
// storage failures.
func (rt *Runtime) ProcessInstruction(instruction *types.Instruction) (_ *Result, err error) {
	if instruction == nil {
		return nil, ErrInvalidInstruction
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	start := time.Now()
	result := &Result{}
	defer func() {
		rt.record(instruction, result, err, time.Since(start))
	}()

	executor, ok := rt.registry.GetProgram(instruction.ProgramID)
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrProgramNotFound, instruction.ProgramID)
		return result, nil
	}

	loaded, err := rt.loadAccounts(instruction.Accounts)
	if err != nil {
		return nil, err
	}

	ctx := invoke.NewExecutionContext(
		instruction.ProgramID,
		loaded.infos,
		instruction.Data,
		uint64(rt.config.ComputeUnits),
	)
	_ = ctx.AddLog(fmt.Sprintf("Program %s invoke [1]", instruction.ProgramID))

	execErr := executor.Execute(ctx, instruction)

	var deltas []types.AccountDelta
	if execErr == nil {
		deltas, execErr = rt.collectChanges(instruction.ProgramID, loaded)
	}

	consumed := ctx.GetComputeUnitsConsumed()
	_ = ctx.AddLog(fmt.Sprintf("Program %s consumed %d of %d compute units",
		instruction.ProgramID, consumed, rt.config.ComputeUnits))

	result.ComputeUnits = types.ComputeUnits(consumed)
	if execErr != nil {
		_ = ctx.AddLog(fmt.Sprintf("Program %s failed: %v", instruction.ProgramID, execErr))
		result.Logs = ctx.GetLogs()
		result.Err = execErr
		return result, nil
	}
	_ = ctx.AddLog(fmt.Sprintf("Program %s success", instruction.ProgramID))
	result.Logs = ctx.GetLogs()

	for _, delta := range deltas {
		if err := rt.db.Set(delta.Pubkey, delta.NewAccount); err != nil {
			return nil, fmt.Errorf("commit %s: %w", delta.Pubkey, err)
		}
	}
	result.AccountDeltas = deltas

	return result, nil
}

// loadAccounts loads every referenced account. Missing accounts are presented
// to the program as empty system-owned accounts.
func (rt *Runtime) loadAccounts(metas []types.AccountMeta) (*loadedAccounts, error) {
	loaded := &loadedAccounts{
		infos:  make([]*invoke.AccountInfo, len(metas)),
		before: make(map[types.Pubkey]*types.Account, len(metas)),
	}
	byKey := make(map[types.Pubkey]*invoke.AccountInfo, len(metas))

	for i, meta := range metas {
		if info, ok := byKey[meta.Pubkey]; ok {
			info.IsSigner = info.IsSigner || meta.IsSigner
			info.IsWritable = info.IsWritable || meta.IsWritable
			loaded.infos[i] = info
			continue
		}

		stored, err := rt.db.Get(meta.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", meta.Pubkey, err)
		}
		loaded.before[meta.Pubkey] = stored

		account := stored
		if account == nil {
			account = types.NewAccount(0, types.SystemProgramID)
		}
		info := invoke.NewAccountInfo(meta, account)
		byKey[meta.Pubkey] = info
		loaded.infos[i] = info
		loaded.unique = append(loaded.unique, info)
	}

	return loaded, nil
}

// collectChanges checks the program only made changes it is allowed to make
// and returns the accounts to write back.
func (rt *Runtime) collectChanges(programID types.Pubkey, loaded *loadedAccounts) ([]types.AccountDelta, error) {
	var deltas []types.AccountDelta
	var lamportsBefore, lamportsAfter uint64

	for _, info := range loaded.unique {
		before := loaded.before[info.Pubkey]
		baseline := before
		if baseline == nil {
			baseline = types.NewAccount(0, types.SystemProgramID)
		}
		after := info.ToAccount()

		lamportsBefore += uint64(baseline.Lamports)
		lamportsAfter += uint64(after.Lamports)

		if after.Equal(baseline) {
			continue
		}
		if !info.IsWritable {
			return nil, fmt.Errorf("%w: %s", ErrReadOnlyModified, info.Pubkey)
		}
		if after.Owner != baseline.Owner {
			return nil, fmt.Errorf("%w: %s", ErrOwnerModified, info.Pubkey)
		}
		if after.Executable != baseline.Executable {
			return nil, fmt.Errorf("%w: %s", ErrExecutableModified, info.Pubkey)
		}
		if !bytes.Equal(after.Data, baseline.Data) && baseline.Owner != programID {
			return nil, fmt.Errorf("%w: %s", ErrExternalDataModified, info.Pubkey)
		}

		deltas = append(deltas, types.AccountDelta{
			Pubkey:     info.Pubkey,
			OldAccount: before,
			NewAccount: after,
		})
	}

	if lamportsBefore != lamportsAfter {
		return nil, ErrUnbalancedInstruction
	}
	return deltas, nil
}

// record logs and counts one instruction. storeErr is a storage failure that
// aborted processing; it counts as a failed instruction with nothing written.
func (rt *Runtime) record(instruction *types.Instruction, result *Result, storeErr error, elapsed time.Duration) {
	name, ok := rt.registry.GetProgramName(instruction.ProgramID)
	if !ok {
		name = instruction.ProgramID.String()
	}

	failed := result.Err != nil || storeErr != nil
	accountsWritten := len(result.AccountDeltas)
	if storeErr != nil {
		rt.logger.Error().Err(storeErr).
			Str("program", name).
			Dur("elapsed", elapsed).
			Msg("instruction aborted by storage failure")
	} else if result.Err != nil {
		event := rt.logger.Warn().Err(result.Err)
		if code, ok := result.ErrorCode(); ok {
			event = event.Uint64("code", code)
		}
		event.Str("program", name).
			Uint64("compute_units", uint64(result.ComputeUnits)).
			Dur("elapsed", elapsed).
			Msg("instruction failed")
	} else {
		rt.logger.Debug().
			Str("program", name).
			Uint64("compute_units", uint64(result.ComputeUnits)).
			Int("accounts_written", accountsWritten).
			Dur("elapsed", elapsed).
			Msg("instruction processed")
	}

	if rt.metrics != nil {
		rt.metrics.RecordInstruction(failed, uint64(result.ComputeUnits), accountsWritten, elapsed)
	}
	rt.updateAccountsGauge()
}

func (rt *Runtime) updateAccountsGauge() {
	if rt.metrics != nil {
		rt.metrics.AccountsCount.SetUint64(rt.db.Count())
	}
}
