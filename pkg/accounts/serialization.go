package accounts

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// Serialization format:
// - lamports:   8 bytes (little-endian uint64)
// - data_len:   4 bytes (little-endian uint32)
// - data:       data_len bytes
// - owner:      32 bytes
// - executable: 1 byte (0 or 1)
// - rent_epoch: 8 bytes (little-endian uint64)
//
// Total fixed size: 8 + 4 + 32 + 1 + 8 = 53 bytes + variable data

const (
	serializationHeaderSize = 8 + 4      // lamports + data_len
	serializationFooterSize = 32 + 1 + 8 // owner + executable + rent_epoch
	serializationMinSize    = serializationHeaderSize + serializationFooterSize
)

// record adapts types.Account to the gagliardetto/binary codec.
type record struct {
	*types.Account
}

func (r record) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(uint64(r.Lamports), binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(r.Data)), binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBytes(r.Data, false); err != nil {
		return err
	}
	if err := enc.WriteBytes(r.Owner[:], false); err != nil {
		return err
	}
	if err := enc.WriteBool(r.Executable); err != nil {
		return err
	}
	return enc.WriteUint64(uint64(r.RentEpoch), binary.LittleEndian)
}

func (r record) UnmarshalWithDecoder(dec *bin.Decoder) error {
	lamports, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return err
	}
	dataLen, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	if dec.Remaining() < int(dataLen)+serializationFooterSize {
		return errors.Wrapf(ErrInvalidAccountData, "data length mismatch, need %d more bytes, got %d",
			int(dataLen)+serializationFooterSize, dec.Remaining())
	}

	var data []byte
	if dataLen > 0 {
		raw, err := dec.ReadNBytes(int(dataLen))
		if err != nil {
			return err
		}
		data = make([]byte, dataLen)
		copy(data, raw)
	}

	owner, err := dec.ReadNBytes(32)
	if err != nil {
		return err
	}
	executable, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	rentEpoch, err := dec.ReadUint64(binary.LittleEndian)
	if err != nil {
		return err
	}

	r.Lamports = types.Lamports(lamports)
	r.Data = data
	copy(r.Owner[:], owner)
	r.Executable = executable != 0
	r.RentEpoch = types.Epoch(rentEpoch)
	return nil
}

// SerializeAccount serializes an account to binary format.
func SerializeAccount(account *types.Account) ([]byte, error) {
	if account == nil {
		return nil, ErrNilAccount
	}

	buf := bytes.NewBuffer(make([]byte, 0, serializationMinSize+len(account.Data)))
	if err := (record{account}).MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, errors.Wrap(err, "serialize account")
	}
	return buf.Bytes(), nil
}

// DeserializeAccount deserializes an account from binary format.
// Bytes after the record are ignored.
func DeserializeAccount(data []byte) (*types.Account, error) {
	if len(data) < serializationMinSize {
		return nil, errors.Wrapf(ErrInvalidAccountData, "data too short, need at least %d bytes, got %d",
			serializationMinSize, len(data))
	}

	account := &types.Account{}
	if err := (record{account}).UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		if errors.Is(err, ErrInvalidAccountData) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrInvalidAccountData, "%v", err)
	}
	return account, nil
}
