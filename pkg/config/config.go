// Package config loads the x1-mint TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/runtime"
	"github.com/fortiblox/x1-mint/pkg/svm/sysvar"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Config represents the TOML configuration file structure.
type Config struct {
	General GeneralConfig `toml:"general"`
	Store   StoreConfig   `toml:"store"`
	Program ProgramConfig `toml:"program"`
	Rent    RentConfig    `toml:"rent"`
	Compute ComputeConfig `toml:"compute"`
	RPC     RPCConfig     `toml:"rpc"`
}

// GeneralConfig holds general application settings.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

// StoreConfig selects the accounts store backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
}

// ProgramConfig holds the address the mint initializer is deployed at.
type ProgramConfig struct {
	ID string `toml:"id"`
}

// RentConfig holds the rent schedule published through the rent sysvar.
type RentConfig struct {
	LamportsPerByteYear uint64  `toml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `toml:"exemption_threshold"`
	BurnPercent         uint8   `toml:"burn_percent"`
}

// ComputeConfig holds the per-instruction compute budget.
type ComputeConfig struct {
	Units uint64 `toml:"units"`
}

// RPCConfig holds HTTP server settings.
type RPCConfig struct {
	Addr string `toml:"addr"`
}

// Default returns a Config with default values.
func Default() Config {
	rent := sysvar.DefaultRent()
	return Config{
		General: GeneralConfig{
			DataDir:  defaultDataDir(),
			LogLevel: "info",
		},
		Store: StoreConfig{
			Backend: accounts.BackendBadger,
		},
		Program: ProgramConfig{
			ID: types.MintProgramID.String(),
		},
		Rent: RentConfig{
			LamportsPerByteYear: rent.LamportsPerByteYear,
			ExemptionThreshold:  rent.ExemptionThreshold,
			BurnPercent:         rent.BurnPercent,
		},
		Compute: ComputeConfig{
			Units: uint64(types.DefaultComputeUnitsPerInstruction),
		},
		RPC: RPCConfig{
			Addr: ":8899",
		},
	}
}

// DefaultPath returns ~/.config/x1-mint/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "x1-mint", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "x1-mint-data"
	}
	return filepath.Join(home, ".local", "share", "x1-mint")
}

// Load reads the configuration at path over the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return cfg, fmt.Errorf("load config: unknown keys %s", strings.Join(keys, ", "))
	}

	cfg.General.DataDir = strings.TrimSpace(cfg.General.DataDir)
	cfg.General.LogLevel = strings.ToLower(strings.TrimSpace(cfg.General.LogLevel))
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.Program.ID = strings.TrimSpace(cfg.Program.ID)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// Validate checks every setting is usable.
func (c Config) Validate() error {
	if c.General.DataDir == "" && c.Store.Backend != accounts.BackendMemory {
		return fmt.Errorf("general.data_dir is required for the %q backend", c.Store.Backend)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Store.Backend {
	case accounts.BackendBadger, accounts.BackendMemory:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if _, err := c.ProgramID(); err != nil {
		return err
	}
	if err := c.RentSchedule().Validate(); err != nil {
		return fmt.Errorf("rent: %w", err)
	}
	if c.Compute.Units == 0 {
		return fmt.Errorf("compute.units must be positive")
	}
	return nil
}

// Level parses general.log_level.
func (c Config) Level() (zerolog.Level, error) {
	switch c.General.LogLevel {
	case "debug", "info", "warn", "error":
		return zerolog.ParseLevel(c.General.LogLevel)
	default:
		return zerolog.NoLevel, fmt.Errorf("general.log_level: unknown level %q", c.General.LogLevel)
	}
}

// ProgramID parses program.id.
func (c Config) ProgramID() (types.Pubkey, error) {
	id, err := types.PubkeyFromBase58(c.Program.ID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("program.id: %w", err)
	}
	return id, nil
}

// RentSchedule returns the configured rent schedule.
func (c Config) RentSchedule() sysvar.Rent {
	return sysvar.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionThreshold:  c.Rent.ExemptionThreshold,
		BurnPercent:         c.Rent.BurnPercent,
	}
}

// StorePath returns the accounts store directory.
func (c Config) StorePath() string {
	return filepath.Join(c.General.DataDir, "accounts")
}

// Runtime returns the runtime settings.
func (c Config) Runtime() (runtime.Config, error) {
	id, err := c.ProgramID()
	if err != nil {
		return runtime.Config{}, err
	}
	return runtime.Config{
		ProgramID:    id,
		Rent:         c.RentSchedule(),
		ComputeUnits: types.ComputeUnits(c.Compute.Units),
	}, nil
}
