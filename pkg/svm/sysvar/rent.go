// Package sysvar implements the runtime-provided sysvar accounts the mint program reads.
package sysvar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"

	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Rent sysvar layout (bincode, 17 bytes):
//   - lamports_per_byte_year: u64
//   - exemption_threshold:    f64
//   - burn_percent:           u8
const RentSize = 8 + 8 + 1

// Mainnet rent parameters.
const (
	DefaultLamportsPerByteYear uint64  = 1_000_000_000 / 100 * 365 / (1024 * 1024)
	DefaultExemptionThreshold  float64 = 2.0
	DefaultBurnPercent         uint8   = 50

	// AccountStorageOverhead is the per-account metadata size charged on top of data.
	AccountStorageOverhead uint64 = 128
)

// OwnerID owns every sysvar account.
var OwnerID = types.MustPubkeyFromBase58("Sysvar1111111111111111111111111111111111111")

// Rent holds the cluster's rent schedule.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64 // in years
	BurnPercent         uint8
}

// DefaultRent returns the mainnet rent schedule.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the lamports an account with dataLen bytes needs to be rent exempt.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	size := AccountStorageOverhead + dataLen
	return uint64(float64(size*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt reports whether balance covers rent exemption for dataLen bytes.
func (r Rent) IsExempt(balance uint64, dataLen uint64) bool {
	return balance >= r.MinimumBalance(dataLen)
}

// Validate checks the schedule is usable.
func (r Rent) Validate() error {
	if math.IsNaN(r.ExemptionThreshold) || math.IsInf(r.ExemptionThreshold, 0) || r.ExemptionThreshold < 0 {
		return fmt.Errorf("invalid exemption threshold %v", r.ExemptionThreshold)
	}
	if r.BurnPercent > 100 {
		return fmt.Errorf("burn percent %d exceeds 100", r.BurnPercent)
	}
	return nil
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (r *Rent) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if r.LamportsPerByteYear, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if r.ExemptionThreshold, err = dec.ReadFloat64(binary.LittleEndian); err != nil {
		return err
	}
	if r.BurnPercent, err = dec.ReadUint8(); err != nil {
		return err
	}
	return nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (r Rent) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(r.LamportsPerByteYear, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteFloat64(r.ExemptionThreshold, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint8(r.BurnPercent)
}

// DecodeRent decodes the rent sysvar data. Trailing bytes are ignored.
func DecodeRent(data []byte) (Rent, error) {
	var r Rent
	if len(data) < RentSize {
		return r, fmt.Errorf("rent sysvar requires %d bytes, got %d", RentSize, len(data))
	}
	if err := r.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return r, err
	}
	return r, nil
}

// Encode serializes the rent schedule into sysvar account data.
func (r Rent) Encode() []byte {
	buf := new(bytes.Buffer)
	// Writes into a bytes.Buffer cannot fail.
	_ = r.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}

// RentFromAccountInfo reads the rent schedule from the rent sysvar account.
// Any other account, or data that does not decode, is an invalid argument.
func RentFromAccountInfo(info *invoke.AccountInfo) (Rent, error) {
	if info.Pubkey != types.SysvarRentID {
		return Rent{}, fmt.Errorf("%w: %s is not the rent sysvar", invoke.ErrInvalidArgument, info.Pubkey)
	}
	r, err := DecodeRent(info.Data)
	if err != nil {
		return Rent{}, fmt.Errorf("%w: %v", invoke.ErrInvalidArgument, err)
	}
	return r, nil
}

// NewRentAccount builds the rent sysvar account for the given schedule.
func NewRentAccount(r Rent) *types.Account {
	return types.NewAccountWithData(types.Lamports(r.MinimumBalance(RentSize)), r.Encode(), OwnerID)
}
