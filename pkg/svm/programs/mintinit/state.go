package mintinit

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// MintSize is the size of a serialized Mint account (82 bytes).
const MintSize = 82

// COption tags as written by the token program.
const (
	coptionNone uint32 = 0
	coptionSome uint32 = 1
)

// COption represents an optional pubkey.
// Encoded as a 4 byte little-endian tag followed by 32 bytes, present or not.
type COption struct {
	IsSome bool
	Value  types.Pubkey
}

// Some returns a present COption.
func Some(pk types.Pubkey) COption {
	return COption{IsSome: true, Value: pk}
}

// None returns an absent COption.
func None() COption {
	return COption{}
}

// Get returns the value and whether it is present.
func (o COption) Get() (types.Pubkey, bool) {
	return o.Value, o.IsSome
}

// Mint represents an SPL Token mint account.
// Layout (82 bytes total):
//   - mint_authority: COption<Pubkey> (36 bytes) - 4 byte tag + 32 byte pubkey
//   - supply: u64 (8 bytes)
//   - decimals: u8 (1 byte)
//   - is_initialized: bool (1 byte)
//   - freeze_authority: COption<Pubkey> (36 bytes)
type Mint struct {
	MintAuthority   COption // Authority to mint new tokens
	Supply          uint64  // Total supply of tokens
	Decimals        uint8   // Number of decimal places
	IsInitialized   bool    // Whether the mint is initialized
	FreezeAuthority COption // Authority to freeze token accounts
}

// Initialized reports whether the mint has been initialized.
func (m *Mint) Initialized() bool {
	return m.IsInitialized
}

// UnpackUnchecked decodes a mint record, rejecting anything that is not exactly
// MintSize bytes or that carries an invalid option tag or bool byte.
// It does not require the mint to be initialized.
func UnpackUnchecked(data []byte) (*Mint, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("%w: mint data must be %d bytes, got %d",
			ErrInvalidAccountData, MintSize, len(data))
	}
	m := &Mint{}
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return m, nil
}

// Unpack decodes a mint record like UnpackUnchecked and additionally requires
// the mint to be initialized.
func Unpack(data []byte) (*Mint, error) {
	m, err := UnpackUnchecked(data)
	if err != nil {
		return nil, err
	}
	if !m.Initialized() {
		return nil, ErrUninitializedAccount
	}
	return m, nil
}

// Pack serializes the mint over the first MintSize bytes of dst.
func (m *Mint) Pack(dst []byte) error {
	if len(dst) < MintSize {
		return fmt.Errorf("%w: mint data too short, expected %d bytes, got %d",
			ErrInvalidAccountData, MintSize, len(dst))
	}
	copy(dst, m.Serialize())
	return nil
}

// Serialize returns the MintSize byte encoding of the mint.
func (m *Mint) Serialize() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, MintSize))
	// Writes into a bytes.Buffer cannot fail.
	_ = m.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}

// UnmarshalWithDecoder implements bin.BinaryUnmarshaler.
func (m *Mint) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if m.MintAuthority, err = readCOption(dec); err != nil {
		return err
	}
	if m.Supply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("%w: supply: %v", ErrInvalidAccountData, err)
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return fmt.Errorf("%w: decimals: %v", ErrInvalidAccountData, err)
	}
	flag, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: is_initialized: %v", ErrInvalidAccountData, err)
	}
	if flag > 1 {
		return fmt.Errorf("%w: invalid is_initialized byte %d", ErrInvalidAccountData, flag)
	}
	m.IsInitialized = flag != 0
	if m.FreezeAuthority, err = readCOption(dec); err != nil {
		return err
	}
	return nil
}

// MarshalWithEncoder implements bin.BinaryMarshaler.
func (m Mint) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeCOption(enc, m.MintAuthority); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.Supply, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint8(m.Decimals); err != nil {
		return err
	}
	if err := enc.WriteBool(m.IsInitialized); err != nil {
		return err
	}
	return writeCOption(enc, m.FreezeAuthority)
}

func readCOption(dec *bin.Decoder) (COption, error) {
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return COption{}, fmt.Errorf("%w: option tag: %v", ErrInvalidAccountData, err)
	}
	if tag != coptionNone && tag != coptionSome {
		return COption{}, fmt.Errorf("%w: invalid option tag %d", ErrInvalidAccountData, tag)
	}
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return COption{}, fmt.Errorf("%w: option value: %v", ErrInvalidAccountData, err)
	}
	if tag == coptionNone {
		return None(), nil
	}
	var pk types.Pubkey
	copy(pk[:], raw)
	return Some(pk), nil
}

func writeCOption(enc *bin.Encoder, opt COption) error {
	tag := coptionNone
	var value types.Pubkey
	if opt.IsSome {
		tag = coptionSome
		value = opt.Value
	}
	if err := enc.WriteUint32(tag, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes(value[:], false)
}
