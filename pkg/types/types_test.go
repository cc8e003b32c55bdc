package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyBase58RoundTrip(t *testing.T) {
	pk := PubkeyFromSeed("mint")

	decoded, err := PubkeyFromBase58(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, decoded)
}

func TestPubkeyFromBase58_WrongLength(t *testing.T) {
	_, err := PubkeyFromBase58("3yZe7d")
	require.Error(t, err)
}

func TestWellKnownIDs(t *testing.T) {
	assert.True(t, SystemProgramID.IsZero())
	assert.Equal(t, "SysvarRent111111111111111111111111111111111", SysvarRentID.String())
	assert.Equal(t, "Mint1nit11111111111111111111111111111111111", MintProgramID.String())
}

func TestPubkeyJSON(t *testing.T) {
	type wrapper struct {
		Key Pubkey `json:"key"`
	}
	in := wrapper{Key: PubkeyFromSeed("authority")}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"`+in.Key.String()+`"}`, string(raw))

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestLamportsSOL(t *testing.T) {
	assert.Equal(t, "0.00146", Lamports(1_461_600).SOL().StringFixed(5))
	assert.Equal(t, "1", Lamports(LamportsPerSOL).SOL().String())
}

func TestLamportsFromSOL(t *testing.T) {
	tests := []struct {
		in      string
		want    Lamports
		wantErr bool
	}{
		{in: "1", want: LamportsPerSOL},
		{in: "0.0014616", want: 1_461_600},
		{in: "0.000000001", want: 1},
		{in: "0.0000000001", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LamportsFromSOL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccountCloneAndEqual(t *testing.T) {
	acc := NewAccountWithData(100, []byte{1, 2, 3}, TokenProgramID)
	clone := acc.Clone()
	require.True(t, acc.Equal(clone))

	clone.Data[0] = 9
	assert.False(t, acc.Equal(clone))
	assert.Equal(t, byte(1), acc.Data[0])

	var nilAcc *Account
	assert.True(t, nilAcc.Equal(nil))
	assert.False(t, nilAcc.Equal(acc))
}
