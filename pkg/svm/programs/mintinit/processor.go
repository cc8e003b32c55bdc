package mintinit

import (
	"fmt"

	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/svm/sysvar"
)

// handleInitializeMint handles the InitializeMint instruction.
// Account layout:
//
//	[0] mint (writable) - The mint to initialize
//	[1] mint authority - Address recorded as the mint authority
//	[2] rent sysvar
func handleInitializeMint(ctx *invoke.ExecutionContext) error {
	accounts := ctx.AccountIter()

	mintAcc, err := accounts.Next()
	if err != nil {
		return fmt.Errorf("%w: mint account", err)
	}
	authorityAcc, err := accounts.Next()
	if err != nil {
		return fmt.Errorf("%w: mint authority", err)
	}
	rentAcc, err := accounts.Next()
	if err != nil {
		return fmt.Errorf("%w: rent sysvar", err)
	}

	mint, err := UnpackUnchecked(mintAcc.Data)
	if err != nil {
		return err
	}
	if mint.Initialized() {
		if err := ctx.Log("Mint is already initialized"); err != nil {
			return err
		}
		return fmt.Errorf("%w: mint %s", ErrAccountAlreadyInitialized, mintAcc.Pubkey)
	}

	rent, err := sysvar.RentFromAccountInfo(rentAcc)
	if err != nil {
		return err
	}
	if !rent.IsExempt(mintAcc.LamportBalance(), uint64(mintAcc.DataLen())) {
		return fmt.Errorf("%w: mint %s holds %d lamports, needs %d",
			ErrAccountNotRentExempt, mintAcc.Pubkey, mintAcc.LamportBalance(),
			rent.MinimumBalance(uint64(mintAcc.DataLen())))
	}

	mint.MintAuthority = Some(authorityAcc.Pubkey)
	mint.FreezeAuthority = None()
	mint.Supply = 0
	mint.IsInitialized = true

	return mint.Pack(mintAcc.Data)
}
