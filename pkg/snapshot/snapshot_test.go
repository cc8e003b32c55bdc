package snapshot

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/types"
)

func populated(t *testing.T) *accounts.MemoryDB {
	t.Helper()
	db := accounts.NewMemoryDB()
	for i := 0; i < 25; i++ {
		acc := types.NewAccountWithData(types.Lamports(1_000+i), bytes.Repeat([]byte{byte(i)}, i*3), types.MintProgramID)
		require.NoError(t, db.Set(types.PubkeyFromSeed(fmt.Sprintf("acct-%d", i)), acc))
	}
	return db
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	src := populated(t)

	var buf bytes.Buffer
	saved, err := Save(src, &buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), saved.AccountsCount)
	assert.Equal(t, uint64(25*1_000+300), saved.LamportsTotal)
	assert.Equal(t, Magic, buf.String()[:len(Magic)])

	dst, err := accounts.NewBadgerDB(t.TempDir())
	require.NoError(t, err)
	defer dst.Close()

	loaded, err := Load(dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.Equal(t, uint64(25), dst.Count())

	srcHash, err := accounts.StateHash(src)
	require.NoError(t, err)
	dstHash, err := accounts.StateHash(dst)
	require.NoError(t, err)
	assert.Equal(t, srcHash, dstHash)

	got, err := dst.Get(types.PubkeyFromSeed("acct-7"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.Lamports(1_007), got.Lamports)
	assert.Len(t, got.Data, 21)
}

func TestLoad_RemovesStaleAccounts(t *testing.T) {
	var buf bytes.Buffer
	_, err := Save(populated(t), &buf)
	require.NoError(t, err)

	dst := accounts.NewMemoryDB()
	stale := types.PubkeyFromSeed("stale")
	require.NoError(t, dst.Set(stale, types.NewAccount(5, types.SystemProgramID)))

	_, err = Load(dst, &buf)
	require.NoError(t, err)
	assert.False(t, dst.Has(stale))
	assert.Equal(t, uint64(25), dst.Count())
}

func TestSaveLoad_Empty(t *testing.T) {
	var buf bytes.Buffer
	saved, err := Save(accounts.NewMemoryDB(), &buf)
	require.NoError(t, err)
	assert.Zero(t, saved.AccountsCount)
	assert.Equal(t, types.ZeroHash, saved.StateHash)

	loaded, err := Load(accounts.NewMemoryDB(), &buf)
	require.NoError(t, err)
	assert.Zero(t, loaded.AccountsCount)
}

func TestLoad_CorruptChecksumLeavesStoreUntouched(t *testing.T) {
	var buf bytes.Buffer
	_, err := Save(populated(t), &buf)
	require.NoError(t, err)

	data := buf.Bytes()
	// Flip a byte in the stored checksum.
	data[HeaderSize-1] ^= 0xff

	dst := accounts.NewMemoryDB()
	marker := types.PubkeyFromSeed("marker")
	require.NoError(t, dst.Set(marker, types.NewAccount(1, types.SystemProgramID)))

	_, err = Load(dst, bytes.NewReader(data))
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, uint64(1), dst.Count())
	assert.True(t, dst.Has(marker))
}

func TestLoad_StateHashMismatchLeavesStoreUntouched(t *testing.T) {
	src := accounts.NewMemoryDB()
	require.NoError(t, src.Set(types.PubkeyFromSeed("only"), types.NewAccount(5, types.SystemProgramID)))

	var buf bytes.Buffer
	_, err := Save(src, &buf)
	require.NoError(t, err)

	data := buf.Bytes()
	// The state hash follows magic, version, count and lamports.
	data[len(Magic)+4+8+8] ^= 0xff

	dst := accounts.NewMemoryDB()
	keep := types.PubkeyFromSeed("keep")
	require.NoError(t, dst.Set(keep, types.NewAccount(1, types.SystemProgramID)))

	_, err = Load(dst, bytes.NewReader(data))
	require.ErrorIs(t, err, ErrHashMismatch)
	assert.Equal(t, uint64(1), dst.Count())
	assert.True(t, dst.Has(keep))
	assert.False(t, dst.Has(types.PubkeyFromSeed("only")))
}

func TestLoad_CorruptBody(t *testing.T) {
	var buf bytes.Buffer
	_, err := Save(populated(t), &buf)
	require.NoError(t, err)

	data := buf.Bytes()
	data[len(data)-5] ^= 0xff

	dst := accounts.NewMemoryDB()
	_, err = Load(dst, bytes.NewReader(data))
	require.Error(t, err)
	assert.Zero(t, dst.Count())
}

func TestReadManifest_Rejects(t *testing.T) {
	good := (&Manifest{Version: Version}).encodeHeader()

	badMagic := append([]byte(nil), good...)
	copy(badMagic, "NOTSNAP!")

	future := (&Manifest{Version: Version + 1}).encodeHeader()

	_, err := ReadManifest(bytes.NewReader(good[:HeaderSize-1]))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = ReadManifest(bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = ReadManifest(bytes.NewReader(future))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	m, err := ReadManifest(bytes.NewReader(good))
	require.NoError(t, err)
	assert.Equal(t, Version, m.Version)
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.snap")
	src := populated(t)

	saved, err := SaveFile(src, path)
	require.NoError(t, err)
	assert.NoFileExists(t, path+".tmp")

	dst := accounts.NewMemoryDB()
	loaded, err := LoadFile(dst, path)
	require.NoError(t, err)
	assert.Equal(t, saved.StateHash, loaded.StateHash)

	_, err = LoadFile(dst, filepath.Join(t.TempDir(), "missing.snap"))
	assert.Error(t, err)
}
