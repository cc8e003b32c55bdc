package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/config"
	"github.com/fortiblox/x1-mint/pkg/svm/programs/mintinit"
	"github.com/fortiblox/x1-mint/pkg/types"
)

func run(t *testing.T, dir string, args ...string) error {
	t.Helper()
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--data-dir", dir,
		"--log-level", "error",
	}
	cmd := newRootCmd()
	cmd.SetArgs(append(args, base...))
	return cmd.Execute()
}

func TestCLI_AllocateInitializeShow(t *testing.T) {
	dir := t.TempDir()
	mint := types.PubkeyFromSeed("cli-mint")
	authority := types.PubkeyFromSeed("cli-authority")

	require.NoError(t, run(t, dir, "allocate", mint.String()))
	require.NoError(t, run(t, dir, "initialize", "--mint", mint.String(), "--authority", authority.String()))
	require.NoError(t, run(t, dir, "show", mint.String()))

	// A second initialize reports the program error.
	err := run(t, dir, "initialize", "--mint", mint.String(), "--authority", authority.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, mintinit.ErrAccountAlreadyInitialized)

	cfg := config.Default()
	cfg.General.DataDir = dir
	db, err := accounts.NewBadgerDB(cfg.StorePath())
	require.NoError(t, err)
	defer db.Close()

	acc, err := db.Get(mint)
	require.NoError(t, err)
	require.NotNil(t, acc)
	m, err := mintinit.Unpack(acc.Data)
	require.NoError(t, err)
	assert.Equal(t, mintinit.Some(authority), m.MintAuthority)
}

func TestCLI_SnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.snap")
	mint := types.PubkeyFromSeed("snap-mint")

	require.NoError(t, run(t, dir, "allocate", mint.String()))
	require.NoError(t, run(t, dir, "snapshot", "save", path))
	require.NoError(t, run(t, dir, "snapshot", "load", path))
	require.NoError(t, run(t, dir, "show", mint.String()))
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, run(t, dir, "initialize", "--authority", types.PubkeyFromSeed("a").String()))
	assert.Error(t, run(t, dir, "show", types.PubkeyFromSeed("missing").String()))
	assert.Error(t, run(t, dir, "show", "not-base58-0OIl"))
	assert.Error(t, run(t, dir, "allocate", "--backend", "rocks"))
}

func TestCLI_ConfigInit(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, run(t, dir, "config", "init"))
	assert.Error(t, run(t, dir, "config", "init"))
	require.NoError(t, run(t, dir, "config", "init", "--force"))

	cfg, err := config.Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.General.DataDir)
	assert.Equal(t, "error", cfg.General.LogLevel)
}

func TestCLI_Keygen(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"keygen"})
	require.NoError(t, cmd.Execute())
}
