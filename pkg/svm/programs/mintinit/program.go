// Package mintinit implements a native program with a single instruction:
// initializing an SPL token mint account.
//
// InitializeMint takes a pre-allocated, rent-exempt 82 byte account and writes
// the mint authority into it. The freeze authority is always left empty and
// the supply starts at zero.
package mintinit

import (
	"fmt"

	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Program implements the mint initialization program.
type Program struct {
	// ProgramID is the address the program is deployed at
	ProgramID types.Pubkey
}

// New creates a Program deployed at programID.
func New(programID types.Pubkey) *Program {
	return &Program{ProgramID: programID}
}

// Execute executes a program instruction.
// The instruction format is:
//   - First byte: instruction discriminator
//   - Remaining bytes: ignored
func (p *Program) Execute(ctx *invoke.ExecutionContext, instruction *types.Instruction) error {
	if err := ctx.Log("Processing instruction"); err != nil {
		return err
	}

	ix, err := UnpackInstruction(instruction.Data)
	if err != nil {
		return err
	}

	switch ix.(type) {
	case InitializeMint:
		if err := ctx.Log("Initializing mint"); err != nil {
			return err
		}
		return handleInitializeMint(ctx)
	default:
		return fmt.Errorf("%w: unhandled instruction %s", ErrInvalidInstructionData,
			InstructionName(ix.Discriminator()))
	}
}
