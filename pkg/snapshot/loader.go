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

// entry is one decoded body record.
type entry struct {
	pubkey  types.Pubkey
	account *types.Account
}

// Load restores db from a snapshot read from r. The body is decompressed,
// checksummed, fully decoded and checked against the header's state hash
// before the first write, so a corrupt snapshot leaves db untouched. Accounts in db that are not in the snapshot are removed.
func Load(db accounts.AccountsDB, r io.Reader) (*Manifest, error) {
	manifest, err := ReadManifest(r)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxMemory(maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	defer dec.Close()

	body, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "decompress body: %v", err)
	}

	if types.Hash(blake2b.Sum256(body)) != manifest.Checksum {
		return nil, ErrChecksumMismatch
	}

	entries, err := decodeBody(body)
	if err != nil {
		return nil, err
	}
	if uint64(len(entries)) != manifest.AccountsCount {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "header lists %d accounts, body holds %d",
			manifest.AccountsCount, len(entries))
	}

	stateHash, err := entriesHash(entries)
	if err != nil {
		return nil, errors.Wrap(err, "compute state hash")
	}
	if stateHash != manifest.StateHash {
		return nil, errors.Wrapf(ErrHashMismatch, "expected %s, got %s", manifest.StateHash, stateHash)
	}

	if err := restore(db, entries); err != nil {
		return nil, err
	}
	return manifest, nil
}

// entriesHash is the state hash the store will have once entries are restored.
func entriesHash(entries []entry) (types.Hash, error) {
	scratch := accounts.NewMemoryDB()
	defer scratch.Close()

	for _, e := range entries {
		if err := scratch.Set(e.pubkey, e.account); err != nil {
			return types.Hash{}, err
		}
	}
	return accounts.StateHash(scratch)
}

// LoadFile restores db from the snapshot at path.
func LoadFile(db accounts.AccountsDB, path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot file")
	}
	defer file.Close()

	return Load(db, file)
}

func decodeBody(body []byte) ([]entry, error) {
	var entries []entry
	r := bytes.NewReader(body)

	for r.Len() > 0 {
		var pubkey types.Pubkey
		if _, err := io.ReadFull(r, pubkey[:]); err != nil {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "record %d pubkey: %v", len(entries), err)
		}

		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "record %d length: %v", len(entries), err)
		}
		recordLen := binary.LittleEndian.Uint32(lenBuf[:])
		if int64(recordLen) > int64(r.Len()) {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "record %d claims %d bytes, %d left",
				len(entries), recordLen, r.Len())
		}

		record := make([]byte, recordLen)
		if _, err := io.ReadFull(r, record); err != nil {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "record %d body: %v", len(entries), err)
		}
		account, err := accounts.DeserializeAccount(record)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "record %d: %v", len(entries), err)
		}

		entries = append(entries, entry{pubkey: pubkey, account: account})
	}

	return entries, nil
}

func restore(db accounts.AccountsDB, entries []entry) error {
	keep := make(map[types.Pubkey]struct{}, len(entries))
	for _, e := range entries {
		keep[e.pubkey] = struct{}{}
	}

	var stale []types.Pubkey
	err := db.ForEach(func(pubkey types.Pubkey, _ *types.Account) error {
		if _, ok := keep[pubkey]; !ok {
			stale = append(stale, pubkey)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "scan existing accounts")
	}

	for _, pubkey := range stale {
		if err := db.Delete(pubkey); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := db.Set(e.pubkey, e.account); err != nil {
			return err
		}
	}
	return nil
}
