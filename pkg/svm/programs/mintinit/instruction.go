package mintinit

import (
	"fmt"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// Instruction discriminators (first byte of instruction data)
const (
	InstructionInitializeMint uint8 = 0
)

// Instruction is a decoded program instruction. The set of implementations is
// closed: only this package can add variants.
type Instruction interface {
	// Discriminator returns the opcode byte of the instruction.
	Discriminator() uint8
	// Encode serializes the instruction into instruction data.
	Encode() []byte

	isInstruction()
}

// InitializeMint writes the mint authority into a fresh mint account.
// Accounts:
//
//	[0] mint (writable) - The mint to initialize
//	[1] mint authority - Only its address is used
//	[2] rent sysvar
type InitializeMint struct{}

// Discriminator implements Instruction.
func (InitializeMint) Discriminator() uint8 { return InstructionInitializeMint }

// Encode implements Instruction. The opcode is the entire payload.
func (InitializeMint) Encode() []byte { return []byte{InstructionInitializeMint} }

func (InitializeMint) isInstruction() {}

// UnpackInstruction decodes instruction data into its variant.
// Bytes after the opcode are not interpreted.
func UnpackInstruction(data []byte) (Instruction, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: instruction data is empty", ErrInvalidInstructionData)
	}

	switch data[0] {
	case InstructionInitializeMint:
		return InitializeMint{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstructionData, data[0])
	}
}

// InstructionName returns a human readable name for an opcode.
func InstructionName(discriminator uint8) string {
	switch discriminator {
	case InstructionInitializeMint:
		return "InitializeMint"
	default:
		return fmt.Sprintf("Unknown(%d)", discriminator)
	}
}

// NewInitializeMintInstruction builds an InitializeMint instruction with its
// accounts in the order the program consumes them.
func NewInitializeMintInstruction(programID, mint, authority types.Pubkey) *types.Instruction {
	return &types.Instruction{
		ProgramID: programID,
		Accounts: []types.AccountMeta{
			types.NewWritableMeta(mint),
			types.NewReadonlyMeta(authority),
			types.NewReadonlyMeta(types.SysvarRentID),
		},
		Data: InitializeMint{}.Encode(),
	}
}
