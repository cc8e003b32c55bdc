package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/fortiblox/x1-mint/pkg/accounts"
	"github.com/fortiblox/x1-mint/pkg/config"
	"github.com/fortiblox/x1-mint/pkg/metrics"
	"github.com/fortiblox/x1-mint/pkg/runtime"
)

// globalFlags are the flags shared by every command.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	backend    string
	programID  string
}

// app holds what a command needs once configuration is resolved.
type app struct {
	flags globalFlags
	cfg   config.Config
}

// initLogger installs a console logger on stderr so command output on stdout stays clean.
func initLogger(level zerolog.Level) {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Str("app", "x1-mint").Logger()
	zerolog.SetGlobalLevel(level)
}

// load reads the config file and applies flags the user set explicitly.
func (a *app) load(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	overrideString(flags, "data-dir", a.flags.dataDir, &cfg.General.DataDir)
	overrideString(flags, "log-level", a.flags.logLevel, &cfg.General.LogLevel)
	overrideString(flags, "backend", a.flags.backend, &cfg.Store.Backend)
	overrideString(flags, "program-id", a.flags.programID, &cfg.Program.ID)

	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	initLogger(level)

	a.cfg = cfg
	log.Debug().
		Str("config", a.flags.configPath).
		Str("backend", cfg.Store.Backend).
		Str("data_dir", cfg.General.DataDir).
		Str("program_id", cfg.Program.ID).
		Msg("configuration loaded")
	return nil
}

// overrideString sets *dst to value when the flag was given on the command line.
func overrideString(flags *pflag.FlagSet, name, value string, dst *string) {
	if flags.Changed(name) {
		*dst = value
	}
}

// node is an opened store with a runtime on top of it.
type node struct {
	db      accounts.AccountsDB
	rt      *runtime.Runtime
	metrics *metrics.Metrics
}

// open opens the configured store and starts a runtime over it.
func (a *app) open() (*node, error) {
	if a.cfg.Store.Backend == accounts.BackendBadger {
		if err := os.MkdirAll(a.cfg.StorePath(), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := accounts.Open(a.cfg.Store.Backend, a.cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}

	rtConfig, err := a.cfg.Runtime()
	if err != nil {
		db.Close()
		return nil, err
	}

	registry := runtime.NewProgramRegistry()
	runtime.RegisterNativePrograms(registry, rtConfig.ProgramID)

	m := metrics.NewMetrics()
	rt, err := runtime.New(db, registry, rtConfig, runtime.WithMetrics(m))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &node{db: db, rt: rt, metrics: m}, nil
}

// Close closes the store.
func (n *node) Close() {
	if err := n.db.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close accounts store")
	}
}
