// Package snapshot saves and restores the full accounts store as a single
// compressed file, so a local ledger can be moved or reset to a known state.
//
// File layout:
//   - magic:          8 bytes ("XMSNAP01")
//   - version:        4 bytes (little-endian uint32)
//   - accounts_count: 8 bytes
//   - lamports_total: 8 bytes
//   - state_hash:     32 bytes (accounts.StateHash of the saved store)
//   - checksum:       32 bytes (blake2b-256 of the uncompressed body)
//   - body:           zstd stream of records
//
// Each body record is pubkey (32) | record_len (u32) | serialized account.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"io"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// Magic identifies a snapshot file.
const Magic = "XMSNAP01"

// Version is the current snapshot format version.
const Version uint32 = 1

// HeaderSize is the size of the fixed snapshot header.
const HeaderSize = 8 + 4 + 8 + 8 + 32 + 32

// maxBodySize bounds decompression of untrusted snapshot files.
const maxBodySize = 1 << 30

var (
	// ErrInvalidSnapshot is returned when a snapshot file is malformed.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrChecksumMismatch is returned when the body does not match its checksum.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	// ErrHashMismatch is returned when the snapshot records do not hash to the header's state hash.
	ErrHashMismatch = errors.New("state hash mismatch")
)

// Manifest describes a snapshot.
type Manifest struct {
	Version       uint32     `json:"version"`
	AccountsCount uint64     `json:"accounts_count"`
	LamportsTotal uint64     `json:"lamports_total"`
	StateHash     types.Hash `json:"state_hash"`
	Checksum      types.Hash `json:"checksum"`
}

// MarshalWithEncoder writes the snapshot header.
func (m Manifest) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes([]byte(Magic), false); err != nil {
		return err
	}
	if err := enc.WriteUint32(m.Version, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.AccountsCount, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.LamportsTotal, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.StateHash[:], false); err != nil {
		return err
	}
	return enc.WriteBytes(m.Checksum[:], false)
}

// UnmarshalWithDecoder reads the snapshot header.
func (m *Manifest) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	magic, err := dec.ReadNBytes(len(Magic))
	if err != nil {
		return err
	}
	if string(magic) != Magic {
		return errors.Wrapf(ErrInvalidSnapshot, "bad magic %q", magic)
	}
	if m.Version, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if m.AccountsCount, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if m.LamportsTotal, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	stateHash, err := dec.ReadNBytes(32)
	if err != nil {
		return err
	}
	copy(m.StateHash[:], stateHash)
	checksum, err := dec.ReadNBytes(32)
	if err != nil {
		return err
	}
	copy(m.Checksum[:], checksum)
	return nil
}

func (m *Manifest) encodeHeader() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	// Writes into a bytes.Buffer cannot fail.
	_ = m.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}

// ReadManifest reads only the header of a snapshot.
func ReadManifest(r io.Reader) (*Manifest, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "read header: %v", err)
	}

	m := &Manifest{}
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(header)); err != nil {
		if errors.Is(err, ErrInvalidSnapshot) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrInvalidSnapshot, "decode header: %v", err)
	}
	if m.Version != Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", m.Version)
	}
	return m, nil
}
