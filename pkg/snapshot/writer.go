package snapshot

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Save writes every account in db to w.
func Save(db accounts.AccountsDB, w io.Writer) (*Manifest, error) {
	manifest := &Manifest{Version: Version}

	var body bytes.Buffer
	var lenBuf [4]byte
	err := db.ForEach(func(pubkey types.Pubkey, account *types.Account) error {
		record, err := accounts.SerializeAccount(account)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(record)))
		body.Write(pubkey[:])
		body.Write(lenBuf[:])
		body.Write(record)

		manifest.AccountsCount++
		manifest.LamportsTotal += uint64(account.Lamports)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "collect accounts")
	}

	stateHash, err := accounts.StateHash(db)
	if err != nil {
		return nil, errors.Wrap(err, "compute state hash")
	}
	manifest.StateHash = stateHash
	manifest.Checksum = blake2b.Sum256(body.Bytes())

	if _, err := w.Write(manifest.encodeHeader()); err != nil {
		return nil, errors.Wrap(err, "write header")
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd encoder")
	}
	if _, err := enc.Write(body.Bytes()); err != nil {
		enc.Close()
		return nil, errors.Wrap(err, "write body")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "flush body")
	}

	return manifest, nil
}

// SaveFile writes a snapshot of db to path, replacing any existing file only
// once the new snapshot is complete.
func SaveFile(db accounts.AccountsDB, path string) (*Manifest, error) {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return nil, errors.Wrap(err, "create snapshot file")
	}

	manifest, err := Save(db, file)
	if err != nil {
		file.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return nil, errors.Wrap(err, "sync snapshot file")
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return nil, errors.Wrap(err, "close snapshot file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, errors.Wrap(err, "rename snapshot file")
	}
	return manifest, nil
}
