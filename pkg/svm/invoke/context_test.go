package invoke

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/x1-mint/pkg/types"
)

func testInfo(seed string) *AccountInfo {
	acc := types.NewAccountWithData(1000, []byte{1, 2, 3}, types.MintProgramID)
	return NewAccountInfo(types.NewWritableMeta(types.PubkeyFromSeed(seed)), acc)
}

func TestAccountIter(t *testing.T) {
	a, b := testInfo("a"), testInfo("b")
	it := NewAccountIter([]*AccountInfo{a, b})

	got, err := it.Next()
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 1, it.Remaining())

	got, err = it.Next()
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = it.Next()
	assert.ErrorIs(t, err, ErrNotEnoughAccountKeys)
	assert.Equal(t, 0, it.Remaining())
}

func TestAccountIter_Empty(t *testing.T) {
	ctx := NewExecutionContext(types.MintProgramID, nil, nil, 1000)
	_, err := ctx.AccountIter().Next()
	assert.ErrorIs(t, err, ErrNotEnoughAccountKeys)
}

func TestNewAccountInfo_CopiesData(t *testing.T) {
	acc := types.NewAccountWithData(42, []byte{7, 7}, types.TokenProgramID)
	info := NewAccountInfo(types.NewReadonlyMeta(types.PubkeyFromSeed("x")), acc)

	info.Data[0] = 0
	assert.Equal(t, byte(7), acc.Data[0])
	assert.False(t, info.IsWritable)
	assert.Equal(t, uint64(42), info.LamportBalance())

	back := info.ToAccount()
	assert.Equal(t, types.Lamports(42), back.Lamports)
	assert.Equal(t, []byte{0, 7}, back.Data)
	assert.Equal(t, types.TokenProgramID, back.Owner)
}

func TestLog_ChargesCompute(t *testing.T) {
	ctx := NewExecutionContext(types.MintProgramID, nil, nil, 250)

	require.NoError(t, ctx.Log("one"))
	require.NoError(t, ctx.Log("two"))
	assert.ErrorIs(t, ctx.Log("three"), ErrComputeExhausted)

	assert.Equal(t, []string{"Program log: one", "Program log: two"}, ctx.GetLogs())
	assert.Equal(t, uint64(250), ctx.GetComputeUnitsConsumed())
	assert.Equal(t, uint64(0), ctx.GetComputeUnitsRemaining())
}

func TestAddLog_Limits(t *testing.T) {
	ctx := NewExecutionContext(types.MintProgramID, nil, nil, 0)

	assert.ErrorIs(t, ctx.AddLog(strings.Repeat("x", MaxLogMessageLength+1)), ErrLogTooLong)
	for i := 0; i < MaxLogMessages; i++ {
		require.NoError(t, ctx.AddLog("line"))
	}
	assert.ErrorIs(t, ctx.AddLog("overflow"), ErrMaxLogsExceeded)
}

func TestErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: mint account", ErrAccountNotRentExempt)

	code, ok := ErrorCode(wrapped)
	require.True(t, ok)
	assert.Equal(t, uint64(16)<<32, code)
	assert.True(t, errors.Is(wrapped, ErrAccountNotRentExempt))
	assert.False(t, errors.Is(wrapped, ErrInvalidAccountData))

	custom, ok := ErrorCode(NewCustomError(7))
	require.True(t, ok)
	assert.Equal(t, uint64(7), custom)

	_, ok = ErrorCode(errors.New("plain"))
	assert.False(t, ok)
}
